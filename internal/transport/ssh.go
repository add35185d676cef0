package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/sync/semaphore"
)

// SSH is the default Transport: it dials, authenticates, and pools one
// *ssh.Client per host, allowing concurrent sessions on
// already-established connections. Connection setup is not serialized
// per host: concurrent first calls to the same host each dial.
// cfg.MaxConnections caps how many sessions may be open at once across
// every host, independent of the executor's own per-run fanout window.
type SSH struct {
	cfg Config
	sem *semaphore.Weighted // nil means unbounded

	mu      sync.Mutex
	clients map[string]*ssh.Client
}

// NewSSH constructs an SSH transport from cfg.
func NewSSH(cfg Config) *SSH {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	s := &SSH{cfg: cfg, clients: map[string]*ssh.Client{}}
	if cfg.MaxConnections > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConnections))
	}
	return s
}

// Exec dials (or reuses a pooled connection to) host and runs command,
// collecting its full stdout/stderr before returning.
func (s *SSH) Exec(ctx context.Context, host, command string, timeout time.Duration) (Result, error) {
	return s.run(ctx, host, command, timeout, nil)
}

// StreamExec behaves like Exec but streams output chunks to onOutput
// as the command runs.
func (s *SSH) StreamExec(ctx context.Context, host, command string, timeout time.Duration, onOutput OutputFunc) (Result, error) {
	return s.run(ctx, host, command, timeout, onOutput)
}

func (s *SSH) run(ctx context.Context, host, command string, timeout time.Duration, onOutput OutputFunc) (Result, error) {
	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return Result{}, err
		}
		defer s.sem.Release(1)
	}

	client, err := s.connect(ctx, host)
	if err != nil {
		return Result{}, fmt.Errorf("connecting to %s: %w", host, err)
	}

	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("opening session on %s: %w", host, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	if onOutput == nil {
		session.Stdout = &stdout
		session.Stderr = &stderr
	} else {
		stdoutPipe, err := session.StdoutPipe()
		if err != nil {
			return Result{}, err
		}
		stderrPipe, err := session.StderrPipe()
		if err != nil {
			return Result{}, err
		}
		if err := session.Start(command); err != nil {
			return Result{}, err
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go pump(&wg, stdoutPipe, &stdout, false, onOutput)
		go pump(&wg, stderrPipe, &stderr, true, onOutput)

		runCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() { done <- session.Wait() }()

		var runErr error
		select {
		case <-runCtx.Done():
			_ = session.Close()
			wg.Wait()
			return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1}, runCtx.Err()
		case runErr = <-done:
		}
		wg.Wait()
		return resultFromErr(stdout.String(), stderr.String(), runErr)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-runCtx.Done():
		_ = session.Close()
		return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1}, runCtx.Err()
	case err := <-done:
		return resultFromErr(stdout.String(), stderr.String(), err)
	}
}

func pump(wg *sync.WaitGroup, r io.Reader, buf *bytes.Buffer, isErr bool, onOutput OutputFunc) {
	defer wg.Done()
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			data := append([]byte{}, chunk[:n]...)
			buf.Write(data)
			onOutput(data, isErr)
		}
		if err != nil {
			return
		}
	}
}

func resultFromErr(stdout, stderr string, err error) (Result, error) {
	if err == nil {
		return Result{Stdout: stdout, Stderr: stderr, ExitCode: 0}, nil
	}
	if exitErr, ok := err.(*ssh.ExitError); ok {
		return Result{Stdout: stdout, Stderr: stderr, ExitCode: exitErr.ExitStatus()}, nil
	}
	return Result{Stdout: stdout, Stderr: stderr, ExitCode: -1}, err
}

// connect returns a pooled client for host, dialing and authenticating
// if none exists yet or the pooled one has gone stale.
func (s *SSH) connect(ctx context.Context, host string) (*ssh.Client, error) {
	s.mu.Lock()
	if c, ok := s.clients[host]; ok {
		s.mu.Unlock()
		if _, _, err := c.SendRequest("keepalive@cumin", true, nil); err == nil {
			return c, nil
		}
		s.mu.Lock()
		delete(s.clients, host)
	}
	s.mu.Unlock()

	conf, err := s.clientConfig()
	if err != nil {
		return nil, err
	}

	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = fmt.Sprintf("%s:%d", host, s.cfg.Port)
	}

	dialer := net.Dialer{Timeout: s.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, conf)
	if err != nil {
		return nil, err
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	s.mu.Lock()
	s.clients[host] = client
	s.mu.Unlock()
	return client, nil
}

func (s *SSH) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	switch {
	case s.cfg.PrivateKeyPath != "":
		key, err := os.ReadFile(s.cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading private key %s: %w", s.cfg.PrivateKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing private key %s: %w", s.cfg.PrivateKeyPath, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	case s.cfg.Password != "":
		auth = append(auth, ssh.Password(s.cfg.Password))
	default:
		return nil, fmt.Errorf("no authentication method configured: set a private key path or password")
	}

	hostKeyCallback, err := s.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	user := s.cfg.User
	if user == "" {
		user = "root"
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         s.cfg.ConnectTimeout,
	}, nil
}

func (s *SSH) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if s.cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	files := s.cfg.KnownHostsFiles
	if len(files) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory for default known_hosts: %w", err)
		}
		files = []string{home + "/.ssh/known_hosts"}
	}
	cb, err := knownhosts.New(files...)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts for host key verification: %w", err)
	}
	return cb, nil
}

// Close closes every pooled connection.
func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []string
	for host, c := range s.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", host, err))
		}
	}
	s.clients = map[string]*ssh.Client{}
	if len(errs) > 0 {
		return fmt.Errorf("closing ssh connections: %s", strings.Join(errs, "; "))
	}
	return nil
}
