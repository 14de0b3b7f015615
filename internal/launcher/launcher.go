// Package launcher hands the container over to the web UI server.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/google/shlex"

	"github.com/local/nanoboot/internal/config"
)

// ListenHost is the address the web UI binds to inside the container.
const ListenHost = "0.0.0.0"

// ExecFunc replaces the current process. syscall.Exec only returns on failure.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// Exec is the production ExecFunc.
var Exec ExecFunc = syscall.Exec

// LookPath resolves the executable; swapped out in tests.
var LookPath = exec.LookPath

// ResolvePort returns the listening port, falling back to 8080.
func ResolvePort(e config.Env) (string, error) {
	port := e.Port
	if port == 0 {
		port = config.DefaultPort
	}
	if port < 1 || port > 65535 {
		return "", fmt.Errorf("port %d out of range", port)
	}
	return strconv.Itoa(port), nil
}

// Command returns the web UI argv, bound to all interfaces on the port.
func Command(e config.Env) ([]string, error) {
	line := e.WebUICommand
	if line == "" {
		line = config.DefaultWebUICommand
	}
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parsing web UI command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return nil, errors.New("empty web UI command")
	}
	port, err := ResolvePort(e)
	if err != nil {
		return nil, err
	}
	return append(argv, "--host", ListenHost, "--port", port), nil
}

// Launch execs into the web UI server. It returns only on failure, and then
// the working directory is restored.
func Launch(e config.Env, environ []string, run ExecFunc, logger *slog.Logger) (err error) {
	argv, err := Command(e)
	if err != nil {
		return err
	}
	if e.WebUIDir != "" {
		prev, werr := os.Getwd()
		if werr != nil {
			return fmt.Errorf("reading working directory: %w", werr)
		}
		if cerr := os.Chdir(e.WebUIDir); cerr != nil {
			return fmt.Errorf("entering web UI directory: %w", cerr)
		}
		defer func() {
			if err != nil {
				os.Chdir(prev)
			}
		}()
	}
	// Relative commands such as ./start.sh resolve against WEBUI_DIR.
	bin, err := LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("locating web UI server: %w", err)
	}
	if bin, err = filepath.Abs(bin); err != nil {
		return fmt.Errorf("locating web UI server: %w", err)
	}
	logger.Log(context.Background(), config.LevelStatus, "starting web UI", "addr", ListenHost+":"+argv[len(argv)-1], "cmd", bin)
	if err := run(bin, argv, environ); err != nil {
		return fmt.Errorf("exec %s: %w", bin, err)
	}
	return nil
}
