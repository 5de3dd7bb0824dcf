package client

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	dialTimeout    = 10 * time.Second
	defaultSSHPort = "22"
)

type dialConfig struct {
	display string
	dial    func() (net.Conn, error)
	warning string
}

// parseTarget turns a target string into a dialer. mpv has no conventional
// IPC port, so TCP targets must carry one explicitly.
//
//	host:port            TCP
//	tcp://host:port      TCP
//	unix:///path         Unix-domain socket
//	/path or ./path      Unix-domain socket
//	ssh://user@host/path Unix-domain socket on a remote host, over SSH
func parseTarget(raw string) (*dialConfig, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("target is empty")
	}

	if strings.Contains(trimmed, "://") {
		u, err := url.Parse(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid target %q: %w", raw, err)
		}

		switch strings.ToLower(u.Scheme) {
		case "tcp":
			return tcpConfig(u.Host)
		case "unix":
			path := u.Path
			if u.Host != "" && path == "" {
				path = u.Host
			}
			return unixConfig(path)
		case "ssh":
			return sshConfig(u)
		default:
			return nil, fmt.Errorf("unsupported target scheme %q", u.Scheme)
		}
	}

	// No scheme: anything that looks like a filesystem path is a Unix
	// socket, the rest is host:port.
	if strings.ContainsAny(trimmed, "/\\") || strings.HasPrefix(trimmed, ".") {
		return unixConfig(trimmed)
	}
	return tcpConfig(trimmed)
}

func tcpConfig(hostPort string) (*dialConfig, error) {
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return nil, fmt.Errorf("invalid tcp target %q (expected host:port): %w", hostPort, err)
	}

	address := net.JoinHostPort(host, port)
	return &dialConfig{
		display: address,
		dial: func() (net.Conn, error) {
			return net.DialTimeout("tcp", address, dialTimeout)
		},
	}, nil
}

func unixConfig(path string) (*dialConfig, error) {
	if path == "" {
		return nil, errors.New("unix target has no socket path")
	}

	return &dialConfig{
		display: path,
		dial: func() (net.Conn, error) {
			return net.DialTimeout("unix", path, dialTimeout)
		},
	}, nil
}

func sshConfig(u *url.URL) (*dialConfig, error) {
	if u.Host == "" {
		return nil, errors.New("ssh target has no host")
	}
	if u.Path == "" || u.Path == "/" {
		return nil, errors.New("ssh target has no remote socket path")
	}

	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		host = u.Host
		port = defaultSSHPort
	}

	user := ""
	if u.User != nil {
		user = u.User.Username()
	}
	if user == "" {
		user = defaultSSHUser()
	}

	remotePath := u.Path
	address := net.JoinHostPort(host, port)
	hostKeys, warning := hostKeyCallback()

	display := fmt.Sprintf("ssh://%s@%s%s", user, address, remotePath)
	dial := func() (net.Conn, error) {
		return dialSSH(user, address, remotePath, hostKeys)
	}

	return &dialConfig{display: display, dial: dial, warning: warning}, nil
}

// dialSSH opens an SSH session to the remote host and tunnels a stream to
// the mpv Unix socket there. The returned conn closes the whole SSH client
// when closed; each connection attempt builds its own tunnel.
func dialSSH(user, address, remotePath string, hostKeys ssh.HostKeyCallback) (net.Conn, error) {
	authMethods, err := loadSSHAuthMethods()
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH keys: %w", err)
	}
	if len(authMethods) == 0 {
		return nil, errors.New("no usable SSH keys found in ~/.ssh")
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		HostKeyCallback: hostKeys,
		Timeout:         dialTimeout,
	}

	sshClient, err := ssh.Dial("tcp", address, config)
	if err != nil {
		return nil, err
	}

	conn, err := sshClient.Dial("unix", remotePath)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("remote socket %s: %w", remotePath, err)
	}

	return &tunneledConn{Conn: conn, client: sshClient}, nil
}

// tunneledConn ties the lifetime of the SSH client to the tunneled stream.
type tunneledConn struct {
	net.Conn
	client *ssh.Client
}

func (c *tunneledConn) Close() error {
	err := c.Conn.Close()
	c.client.Close()
	return err
}

// hostKeyCallback builds verification from the user's known_hosts files.
// When none can be read, verification is disabled with a warning rather than
// refusing to connect; there is no interactive prompt in a library.
func hostKeyCallback() (ssh.HostKeyCallback, string) {
	var paths []string
	if env := os.Getenv("SSH_KNOWN_HOSTS"); env != "" {
		for _, p := range strings.Split(env, string(os.PathListSeparator)) {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".ssh", "known_hosts"))
	}

	var readable []string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			readable = append(readable, path)
		}
	}

	if len(readable) > 0 {
		if cb, err := knownhosts.New(readable...); err == nil {
			return cb, ""
		}
	}

	return ssh.InsecureIgnoreHostKey(),
		"SSH host key verification is disabled (known_hosts not found); connection is vulnerable to MITM attacks"
}

func defaultSSHUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	if user := os.Getenv("USERNAME"); user != "" {
		return user
	}
	return "anonymous"
}

// loadSSHAuthMethods loads SSH private keys from standard locations.
func loadSSHAuthMethods() ([]ssh.AuthMethod, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	sshDir := filepath.Join(home, ".ssh")
	keyFiles := []string{
		"id_ed25519",
		"id_ecdsa",
		"id_rsa",
	}

	var signers []ssh.Signer
	for _, keyFile := range keyFiles {
		keyBytes, err := os.ReadFile(filepath.Join(sshDir, keyFile))
		if err != nil {
			continue
		}

		// Encrypted keys are skipped; there is no passphrase prompt here.
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			continue
		}
		signers = append(signers, signer)
	}

	if len(signers) == 0 {
		return nil, nil
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signers...)}, nil
}
