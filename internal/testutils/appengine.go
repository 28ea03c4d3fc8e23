package testutils

import (
	"context"
	"os/exec"
	"testing"

	"github.com/favclip/testerator"
)

// SetupAppEngine spins up the App Engine development server.
// The test is skipped when the SDK is not installed.
func SetupAppEngine(t *testing.T) (context.Context, func()) {
	if _, err := exec.LookPath("dev_appserver.py"); err != nil {
		t.Skip("dev_appserver.py is not available")
	}

	_, ctx, err := testerator.SpinUp()
	if err != nil {
		t.Fatal(err.Error())
	}

	return ctx, func() { testerator.SpinDown() }
}
