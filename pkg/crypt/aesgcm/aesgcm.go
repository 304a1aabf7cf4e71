package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/hashmap-kz/gzdec/pkg/crypt"
)

// Stream layout: "AEADv1" | salt(16) | { nonce(12) | ciphertext+tag }...
// Every chunk but the last carries chunkSize bytes of plaintext. The nonce holds
// the chunk number, so chunks cannot be reordered or replayed.

const (
	chunkSize    = 64 * 1024
	nonceSize    = 12
	saltSize     = 16
	keySize      = 32 // AES-256
	headerPrefix = "AEADv1"
	FileExt      = ".aes"
)

var (
	ErrInvalidHeader = errors.New("invalid file header")
	ErrTampered      = errors.New("decryption failed: tampering or corruption detected")
)

func GeneratePBEKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, keySize)
}

func GenerateRandomNBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

type ChunkedGCMCrypter struct {
	Password string
}

var _ crypt.Crypter = &ChunkedGCMCrypter{}

func NewChunkedGCMCrypter(password string) crypt.Crypter {
	return &ChunkedGCMCrypter{
		Password: password,
	}
}

func (c *ChunkedGCMCrypter) FileExtension() string {
	return FileExt
}

func (c *ChunkedGCMCrypter) Name() string {
	return "aes-256-gcm"
}

func newAEAD(password string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(GeneratePBEKey(password, salt))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func chunkNonce(n uint64) []byte {
	nonce := make([]byte, nonceSize)
	binary.BigEndian.PutUint64(nonce[4:], n)
	return nonce
}

func (c *ChunkedGCMCrypter) Encrypt(w io.Writer) (io.WriteCloser, error) {
	salt, err := GenerateRandomNBytes(saltSize)
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(c.Password, salt)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write([]byte(headerPrefix)); err != nil {
		return nil, err
	}
	if _, err := w.Write(salt); err != nil {
		return nil, err
	}

	return &gcmChunkedWriter{
		aead: aead,
		w:    w,
		buf:  make([]byte, 0, chunkSize),
	}, nil
}

type gcmChunkedWriter struct {
	aead     cipher.AEAD
	w        io.Writer
	buf      []byte
	chunkNum uint64
}

func (g *gcmChunkedWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		space := min(chunkSize-len(g.buf), len(p))
		g.buf = append(g.buf, p[:space]...)
		p = p[space:]
		total += space

		if len(g.buf) == chunkSize {
			if err := g.flush(); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

func (g *gcmChunkedWriter) Close() error {
	if len(g.buf) > 0 {
		return g.flush()
	}
	return nil
}

func (g *gcmChunkedWriter) flush() error {
	nonce := chunkNonce(g.chunkNum)
	ciphertext := g.aead.Seal(nil, nonce, g.buf, nil)

	if _, err := g.w.Write(nonce); err != nil {
		return err
	}
	if _, err := g.w.Write(ciphertext); err != nil {
		return err
	}

	g.chunkNum++
	g.buf = g.buf[:0]
	return nil
}

func (c *ChunkedGCMCrypter) Decrypt(r io.Reader) (io.Reader, error) {
	header := make([]byte, len(headerPrefix)+saltSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("cannot read encryption header: %w", err)
	}
	if string(header[:len(headerPrefix)]) != headerPrefix {
		return nil, ErrInvalidHeader
	}
	aead, err := newAEAD(c.Password, header[len(headerPrefix):])
	if err != nil {
		return nil, err
	}

	return &gcmChunkedReader{
		aead:       aead,
		r:          r,
		ciphertext: make([]byte, chunkSize+aead.Overhead()),
	}, nil
}

type gcmChunkedReader struct {
	aead       cipher.AEAD
	r          io.Reader
	chunkNum   uint64
	ciphertext []byte
	buf        []byte
	err        error
}

func (g *gcmChunkedReader) Read(p []byte) (int, error) {
	for len(g.buf) == 0 {
		if g.err != nil {
			return 0, g.err
		}
		g.err = g.next()
	}

	n := copy(p, g.buf)
	g.buf = g.buf[n:]
	return n, nil
}

func (g *gcmChunkedReader) next() error {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(g.r, nonce); err != nil {
		// io.EOF: clean end between chunks
		return err
	}
	if binary.BigEndian.Uint64(nonce[4:]) != g.chunkNum {
		return fmt.Errorf("%w: chunk %d out of sequence", ErrTampered, g.chunkNum)
	}

	n, err := io.ReadFull(g.r, g.ciphertext)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}

	plaintext, err := g.aead.Open(nil, nonce, g.ciphertext[:n], nil)
	if err != nil {
		return ErrTampered
	}
	g.buf = plaintext
	g.chunkNum++
	return nil
}
