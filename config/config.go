package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	once   sync.Once
	config *Config
)

type (
	RepoType      string
	RepoEncryptor string
)

const (
	RepoTypeLocal          RepoType      = "local"
	RepoTypeSFTP           RepoType      = "sftp"
	RepoTypeS3             RepoType      = "s3"
	RepoEncryptorAes256Gcm RepoEncryptor = "aes-256-gcm"
)

const (
	DefaultChunkSize   = 64 * 1024
	DefaultScratchSize = 16 * 1024
	DefaultJobs        = 4
	DefaultOutputDir   = "decoded"
)

type Config struct {
	// Repo main config
	RepoPath string   `json:"REPO_PATH" yaml:"REPO_PATH"` // /mnt/archives
	RepoType RepoType `json:"REPO_TYPE" yaml:"REPO_TYPE"` // "local", "sftp", "s3"

	// Encryption of stored objects (.aes)
	RepoEncryptor      RepoEncryptor `json:"REPO_ENCRYPTOR" yaml:"REPO_ENCRYPTOR"` // aes-256-gcm
	RepoEncryptionPass string        `json:"REPO_ENCRYPTION_PASS" yaml:"REPO_ENCRYPTION_PASS"`

	// SFTP Storage config
	RepoStorageSFTPHost                 string `json:"REPO_STORAGE_SFTP_HOST" yaml:"REPO_STORAGE_SFTP_HOST"`
	RepoStorageSFTPPort                 int    `json:"REPO_STORAGE_SFTP_PORT" yaml:"REPO_STORAGE_SFTP_PORT"`
	RepoStorageSFTPUser                 string `json:"REPO_STORAGE_SFTP_USER" yaml:"REPO_STORAGE_SFTP_USER"`
	RepoStorageSFTPPass                 string `json:"REPO_STORAGE_SFTP_PASS" yaml:"REPO_STORAGE_SFTP_PASS"`
	RepoStorageSFTPPrivateKeyPath       string `json:"REPO_STORAGE_SFTP_PRIVATE_KEY_PATH" yaml:"REPO_STORAGE_SFTP_PRIVATE_KEY_PATH"`
	RepoStorageSFTPPrivateKeyPassphrase string `json:"REPO_STORAGE_SFTP_PRIVATE_KEY_PASSPHRASE" yaml:"REPO_STORAGE_SFTP_PRIVATE_KEY_PASSPHRASE"`

	// S3 Storage config
	RepoStorageS3URL             string `json:"REPO_STORAGE_S3_URL" yaml:"REPO_STORAGE_S3_URL"`
	RepoStorageS3AccessKeyID     string `json:"REPO_STORAGE_S3_ACCESS_KEY_ID" yaml:"REPO_STORAGE_S3_ACCESS_KEY_ID"`
	RepoStorageS3SecretAccessKey string `json:"REPO_STORAGE_S3_SECRET_ACCESS_KEY" yaml:"REPO_STORAGE_S3_SECRET_ACCESS_KEY"`
	RepoStorageS3Bucket          string `json:"REPO_STORAGE_S3_BUCKET" yaml:"REPO_STORAGE_S3_BUCKET"`
	RepoStorageS3Region          string `json:"REPO_STORAGE_S3_REGION" yaml:"REPO_STORAGE_S3_REGION"`
	RepoStorageS3UsePathStyle    bool   `json:"REPO_STORAGE_S3_USE_PATH_STYLE" yaml:"REPO_STORAGE_S3_USE_PATH_STYLE"`
	RepoStorageS3DisableSSL      bool   `json:"REPO_STORAGE_S3_DISABLE_SSL" yaml:"REPO_STORAGE_S3_DISABLE_SSL"`

	// Decoding
	OutputPrefix string `json:"OUTPUT_PREFIX" yaml:"OUTPUT_PREFIX"` // where decoded objects are stored
	ChunkSize    int    `json:"CHUNK_SIZE" yaml:"CHUNK_SIZE"`       // bytes per submitted buffer
	ScratchSize  int    `json:"SCRATCH_SIZE" yaml:"SCRATCH_SIZE"`   // codec output window
	Jobs         int    `json:"JOBS" yaml:"JOBS"`
	Passthrough  bool   `json:"PASSTHROUGH" yaml:"PASSTHROUGH"`
	FsyncOnWrite bool   `json:"FSYNC_ON_WRITE" yaml:"FSYNC_ON_WRITE"`

	LogLevel string `json:"LOG_LEVEL" yaml:"LOG_LEVEL"`
}

// LoadConfigFromFile unmarshal file into config struct
func LoadConfigFromFile(filename string) *Config {
	once.Do(func() {
		cfg, err := loadFromFile(filename)
		if err != nil {
			log.Fatal(err)
		}
		config = cfg
	})
	return config
}

// LoadConfig unmarshal raw JSON data into config struct
func LoadConfig(content []byte) *Config {
	once.Do(func() {
		cfg, err := loadFromBuf(content, false)
		if err != nil {
			log.Fatal(err)
		}
		config = cfg
	})
	return config
}

// LoadDefaults installs a config with defaults only, for runs without a config file.
func LoadDefaults() *Config {
	once.Do(func() {
		cfg := &Config{}
		cfg.applyDefaults()
		config = cfg
	})
	return config
}

// helper internal functions, suitable for testing

func loadFromFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return loadFromBuf(content, ext == ".yaml" || ext == ".yml")
}

func loadFromBuf(content []byte, isYAML bool) (*Config, error) {
	content = expandEnvVars(content)

	var cfg Config
	var err error
	if isYAML {
		err = yaml.Unmarshal(content, &cfg)
	} else {
		err = json.Unmarshal(content, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func expandEnvVars(buf []byte) []byte {
	s := string(buf)
	e := os.ExpandEnv(s)
	return []byte(e)
}

func (c *Config) applyDefaults() {
	if c.RepoType == "" {
		c.RepoType = RepoTypeLocal
	}
	if c.RepoStorageSFTPPort == 0 {
		c.RepoStorageSFTPPort = 22
	}
	if c.OutputPrefix == "" {
		c.OutputPrefix = DefaultOutputDir
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ScratchSize == 0 {
		c.ScratchSize = DefaultScratchSize
	}
	if c.Jobs == 0 {
		c.Jobs = DefaultJobs
	}
}

func (c *Config) Validate() error {
	switch c.RepoType {
	case RepoTypeLocal, RepoTypeSFTP, RepoTypeS3:
	default:
		return fmt.Errorf("unknown repo type: %q", c.RepoType)
	}
	if c.RepoEncryptor != "" {
		if c.RepoEncryptor != RepoEncryptorAes256Gcm {
			return fmt.Errorf("unknown encryptor: %q", c.RepoEncryptor)
		}
		if c.RepoEncryptionPass == "" {
			return fmt.Errorf("encryptor %s requires REPO_ENCRYPTION_PASS", c.RepoEncryptor)
		}
	}
	if c.ChunkSize < 0 || c.ScratchSize < 0 || c.Jobs < 0 {
		return fmt.Errorf("negative size in config: chunk=%d scratch=%d jobs=%d", c.ChunkSize, c.ScratchSize, c.Jobs)
	}
	return nil
}

func Cfg() *Config {
	if config == nil {
		log.Fatal("config was not loaded in main")
	}
	return config
}
