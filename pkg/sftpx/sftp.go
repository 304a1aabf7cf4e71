package sftpx

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

const DefaultDialTimeout = 5 * time.Second

var ErrNoAuth = errors.New("sftp: either a private key or a password is required")

type SFTPConfig struct {
	// Required
	Host string
	Port int
	User string

	// One of
	PkeyPath string
	Password string

	// Optional, if private key is created with a passphrase
	Passphrase string

	DialTimeout time.Duration
}

type SFTPClient struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
}

// NewSFTPClient connects to the server, with public key authentication when a key
// path is set and password authentication otherwise.
func NewSFTPClient(sftpConfig *SFTPConfig) (*SFTPClient, error) {
	sshConfig, err := clientConfig(sftpConfig)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(sftpConfig.Host, strconv.Itoa(sftpConfig.Port))
	conn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to SFTP server %s: %w", addr, err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("unable to create SFTP client: %w", err)
	}

	return &SFTPClient{
		sshClient:  conn,
		sftpClient: client,
	}, nil
}

func clientConfig(c *SFTPConfig) (*ssh.ClientConfig, error) {
	auth, err := authMethods(c)
	if err != nil {
		return nil, err
	}
	timeout := c.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	return &ssh.ClientConfig{
		User: c.User,
		Auth: auth,
		//nolint:gosec
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}, nil
}

func authMethods(c *SFTPConfig) ([]ssh.AuthMethod, error) {
	if c.PkeyPath == "" {
		if c.Password == "" {
			return nil, ErrNoAuth
		}
		return []ssh.AuthMethod{ssh.Password(c.Password)}, nil
	}

	key, err := os.ReadFile(c.PkeyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key: %w", err)
	}

	var signer ssh.Signer
	if c.Passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(c.Passphrase))
		if err != nil {
			return nil, fmt.Errorf("unable to parse private key with passphrase: %w", err)
		}
	} else {
		signer, err = ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("unable to parse private key: %w", err)
		}
	}

	methods := []ssh.AuthMethod{ssh.PublicKeys(signer)}
	if c.Password != "" {
		methods = append(methods, ssh.Password(c.Password))
	}
	return methods, nil
}

func (s *SFTPClient) SFTPClient() *sftp.Client {
	return s.sftpClient
}

func (s *SFTPClient) Close() error {
	var err error
	if s.sftpClient != nil {
		err = s.sftpClient.Close()
	}
	if s.sshClient != nil {
		if cerr := s.sshClient.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
