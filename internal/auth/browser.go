package auth

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Opener sends the user's browser to rawURL.
type Opener func(ctx context.Context, rawURL string) error

// OpenBrowser launches the platform's default browser.
func OpenBrowser(ctx context.Context, rawURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", rawURL)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", rawURL)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("auth: open browser: %w", err)
	}
	go cmd.Wait()
	return nil
}
