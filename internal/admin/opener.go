package admin

import (
	"os/exec"
	"runtime"
)

// Opener shows a URL to the user in some external viewer.
type Opener interface {
	Open(url string) error
}

// BrowserOpener launches the platform's default browser.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error { return f(url) }
