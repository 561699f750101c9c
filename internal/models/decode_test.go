package models

import (
	"errors"
	"testing"
)

func TestDecodeUser_AcceptsBothIDKeys(t *testing.T) {
	u, err := DecodeUser([]byte(`{"_id":"a1","name":"Alice","username":"alice","phone":"123","role":"user","is_active":true}`))
	if err != nil {
		t.Fatalf("DecodeUser: %v", err)
	}
	if u.ID != "a1" || u.Username != "alice" || !u.IsActive {
		t.Fatalf("unexpected user: %+v", u)
	}

	u, err = DecodeUser([]byte(`{"id":"b2","username":"bob"}`))
	if err != nil {
		t.Fatalf("DecodeUser with id: %v", err)
	}
	if u.ID != "b2" {
		t.Fatalf("expected id fallback, got %q", u.ID)
	}
	if u.DisplayName() != "bob" {
		t.Fatalf("display name should fall back to username, got %q", u.DisplayName())
	}
}

func TestDecodeUser_RejectsMissingUsername(t *testing.T) {
	_, err := DecodeUser([]byte(`{"name":"ghost"}`))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField in chain, got %v", err)
	}
}

func TestDecodeUsers_NullIsEmpty(t *testing.T) {
	users, err := DecodeUsers([]byte(`null`))
	if err != nil {
		t.Fatalf("DecodeUsers: %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", users)
	}
}

func TestDecodeUsers_RejectsNonArray(t *testing.T) {
	if _, err := DecodeUsers([]byte(`{"detail":"nope"}`)); err == nil {
		t.Fatalf("expected error for object body")
	}
}

func TestDecodeThread(t *testing.T) {
	th, err := DecodeThread([]byte(`{"messages":[{"sender":"alice","text":"hi"}],"other":{"username":"bob"},"you_blocked":true,"they_blocked":false}`))
	if err != nil {
		t.Fatalf("DecodeThread: %v", err)
	}
	if len(th.Messages) != 1 || th.Messages[0].Text != "hi" {
		t.Fatalf("unexpected messages: %+v", th.Messages)
	}
	if !th.Blocked() {
		t.Fatalf("thread with you_blocked should be blocked")
	}

	if _, err := DecodeThread([]byte(`{"messages":[]}`)); err == nil {
		t.Fatalf("expected error for thread without other")
	}
	if _, err := DecodeThread([]byte(`{"messages":[{"text":"x"}],"other":{"username":"bob"}}`)); err == nil {
		t.Fatalf("expected error for message without sender")
	}
}

func TestDecodeAuthResult(t *testing.T) {
	a, err := DecodeAuthResult([]byte(`{"access_token":"tok","role":"admin"}`))
	if err != nil {
		t.Fatalf("DecodeAuthResult: %v", err)
	}
	if a.Role != RoleAdmin {
		t.Fatalf("role = %q", a.Role)
	}
	if _, err := DecodeAuthResult([]byte(`{"access_token":"tok","role":"root"}`)); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if _, err := DecodeAuthResult([]byte(`{"role":"user"}`)); err == nil {
		t.Fatalf("expected error for missing token")
	}
	if _, err := DecodeAuthResult([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}
