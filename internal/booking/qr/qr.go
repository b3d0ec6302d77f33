package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"github.com/skip2/go-qrcode"
)

// Generator encodes booking references into QR codes. The reference is
// encrypted so that the code cannot be forged or read without the secret.
type Generator struct {
	secret []byte
	size   int
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:], size: 256}
}

// Generate returns a PNG.
func (g *Generator) Generate(reference string) ([]byte, error) {
	token, err := g.Encrypt(reference)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, g.size)
}

func (g *Generator) Encrypt(reference string) (string, error) {
	block, err := aes.NewCipher(g.secret)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(reference))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], []byte(reference))

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt recovers the reference from a scanned token.
func (g *Generator) Decrypt(token string) (string, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	if len(ciphertext) < aes.BlockSize {
		return "", errors.New("qr token too short")
	}

	block, err := aes.NewCipher(g.secret)
	if err != nil {
		return "", err
	}
	iv, data := ciphertext[:aes.BlockSize], ciphertext[aes.BlockSize:]
	plain := make([]byte, len(data))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(plain, data)
	return string(plain), nil
}
