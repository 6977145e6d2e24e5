// Package executor runs a fixed multi-line script against a target, over SSH
// or on the local shell, behind one synchronous contract: callers get combined
// output, an exit code and the elapsed time, or a typed failure. Every call is
// bounded by a timeout that force-closes the underlying connection, so a hung
// remote process can never stall a collection cycle.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/dragusinb/claude-dev-hub-sub001/models"
)

// Result is the outcome of one script execution.
type Result struct {
	Stdout   string
	ExitCode int
	Elapsed  time.Duration
}

// Executor runs scripts against targets with a fixed per-call timeout.
type Executor struct {
	timeout time.Duration
}

// New creates an executor with the given per-call timeout.
func New(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{timeout: timeout}
}

// Run executes the script on the target. Local targets run on the local
// shell; everything else goes over SSH. The output contract is identical on
// both paths.
func (e *Executor) Run(ctx context.Context, t models.Target, script string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	if t.IsLocal {
		res, err := runLocal(ctx, script)
		res.Elapsed = time.Since(start)
		if err != nil {
			return res, e.classifyLocal(t, ctx, err)
		}
		return res, nil
	}

	res, err := e.runSSH(ctx, t, script)
	res.Elapsed = time.Since(start)
	return res, err
}

func (e *Executor) runSSH(ctx context.Context, t models.Target, script string) (Result, error) {
	config, err := buildClientConfig(t, e.timeout)
	if err != nil {
		return Result{}, newExecError(t.Host, ErrAuth, err)
	}

	address := net.JoinHostPort(t.Host, fmt.Sprintf("%d", t.Port))
	dialer := net.Dialer{Timeout: e.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Result{}, newExecError(t.Host, ErrTimeout, err)
		}
		return Result{}, newExecError(t.Host, ErrConnection, err)
	}

	// ClientConfig.Timeout does not bound the handshake, so a peer that
	// accepts TCP and then goes silent would block here forever. A conn
	// deadline covers the handshake; it is cleared once the transport is up.
	conn.SetDeadline(time.Now().Add(e.timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		if isAuthFailure(err) {
			return Result{}, newExecError(t.Host, ErrAuth, err)
		}
		if ctx.Err() == context.DeadlineExceeded || isTimeout(err) {
			return Result{}, newExecError(t.Host, ErrTimeout, err)
		}
		return Result{}, newExecError(t.Host, ErrConnection, err)
	}
	conn.SetDeadline(time.Time{})
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, newExecError(t.Host, ErrConnection, err)
	}
	defer session.Close()

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = &output

	// The SSH transport has no native deadline on a running command, so the
	// run is resolved from a goroutine and the connection is torn down when
	// the context expires. Closing the client unblocks session.Run.
	done := make(chan error, 1)
	go func() {
		done <- session.Run(script)
	}()

	select {
	case <-ctx.Done():
		client.Close()
		<-done
		return Result{Stdout: output.String(), ExitCode: -1}, newExecError(t.Host, ErrTimeout, ctx.Err())
	case err := <-done:
		exitCode := 0
		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				// Command ran, just exited non-zero.
				exitCode = exitErr.ExitStatus()
			} else {
				return Result{Stdout: output.String(), ExitCode: -1}, newExecError(t.Host, ErrConnection, err)
			}
		}
		return Result{Stdout: output.String(), ExitCode: exitCode}, nil
	}
}

func buildClientConfig(t models.Target, timeout time.Duration) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	switch t.AuthType {
	case models.AuthKey:
		signer, err := ssh.ParsePrivateKey([]byte(t.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	case models.AuthPassword:
		auth = append(auth, ssh.Password(t.Password))
	default:
		return nil, fmt.Errorf("unknown auth type %q", t.AuthType)
	}

	return &ssh.ClientConfig{
		User: t.Username,
		Auth: auth,
		// Targets are registered with explicit credentials by an operator;
		// there is no known_hosts store to verify against.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isAuthFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain") ||
		strings.Contains(msg, "permission denied")
}

func (e *Executor) classifyLocal(t models.Target, ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return newExecError(t.Host, ErrTimeout, err)
	}
	return newExecError(t.Host, ErrConnection, err)
}
