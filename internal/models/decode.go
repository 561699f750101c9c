package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeError reports a response body that could not be turned into the
// expected shape, either because it was not valid JSON or because required
// fields were missing.
type DecodeError struct {
	Shape string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Shape, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var ErrMissingField = errors.New("missing field")

func errMissing(field string) error {
	return fmt.Errorf("%w %q", ErrMissingField, field)
}

func errInvalid(field, value string) error {
	return fmt.Errorf("invalid %s %q", field, value)
}

func decode(shape string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return &DecodeError{Shape: shape, Err: err}
	}
	return nil
}

func DecodeUser(data []byte) (User, error) {
	var u User
	if err := decode("user", data, &u); err != nil {
		return User{}, err
	}
	if err := u.validate(); err != nil {
		return User{}, &DecodeError{Shape: "user", Err: err}
	}
	return u, nil
}

// DecodeUsers decodes a JSON array of users. A null body decodes to an empty list.
func DecodeUsers(data []byte) ([]User, error) {
	var users []User
	if err := decode("user list", data, &users); err != nil {
		return nil, err
	}
	for i, u := range users {
		if err := u.validate(); err != nil {
			return nil, &DecodeError{Shape: "user list", Err: fmt.Errorf("entry %d: %w", i, err)}
		}
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

func DecodeThread(data []byte) (Thread, error) {
	var t Thread
	if err := decode("thread", data, &t); err != nil {
		return Thread{}, err
	}
	if err := t.validate(); err != nil {
		return Thread{}, &DecodeError{Shape: "thread", Err: err}
	}
	if t.Messages == nil {
		t.Messages = []Message{}
	}
	return t, nil
}

func DecodeAuthResult(data []byte) (AuthResult, error) {
	var a AuthResult
	if err := decode("auth result", data, &a); err != nil {
		return AuthResult{}, err
	}
	if err := a.validate(); err != nil {
		return AuthResult{}, &DecodeError{Shape: "auth result", Err: err}
	}
	return a, nil
}
