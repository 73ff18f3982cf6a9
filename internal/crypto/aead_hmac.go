package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	ErrPacketTooShort = errors.New("crypto: packet too short")
	ErrInvalidMAC     = errors.New("crypto: invalid mac")
	// ErrPacketVersion 表示报文首字节不是已知的封装版本。
	ErrPacketVersion = errors.New("crypto: unknown packet version")
)

// 加密载荷布局：
//
//	version(1) | nonce(12) | gcm 密文(len+16) | hmac-sha256(32)
//
// MAC 覆盖 version..密文，再接 aad 及其 8 字节长度。
const (
	sealVersion byte = 1
	keySize          = 32
	versionSize      = 1
	macSize          = sha256.Size
)

// AEADHMACEncryptor 以 AES-256-GCM 封装帧载荷，外层再用 HMAC-SHA256 签名。
type AEADHMACEncryptor struct {
	aead cipher.AEAD
	macs sync.Pool
}

var _ Encryptor = (*AEADHMACEncryptor)(nil)

// NewAESGCMHMACEncryptor 创建加密器。encKey 必须为 32 字节，macKey 不能为空。
func NewAESGCMHMACEncryptor(encKey, macKey []byte) (*AEADHMACEncryptor, error) {
	if len(encKey) != keySize {
		return nil, errors.Newf("crypto: encryption key must be %d bytes, got %d", keySize, len(encKey))
	}
	if len(macKey) == 0 {
		return nil, errors.New("crypto: mac key is empty")
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: aes")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: gcm")
	}
	key := append([]byte(nil), macKey...)
	e := &AEADHMACEncryptor{aead: aead}
	e.macs.New = func() any { return hmac.New(sha256.New, key) }
	return e, nil
}

// NewAESGCMHMACEncryptorFromHex 由十六进制编码的密钥创建加密器，供配置文件使用。
func NewAESGCMHMACEncryptorFromHex(encKey, macKey string) (*AEADHMACEncryptor, error) {
	ek, err := hex.DecodeString(encKey)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: decode encryption key")
	}
	mk, err := hex.DecodeString(macKey)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: decode mac key")
	}
	return NewAESGCMHMACEncryptor(ek, mk)
}

// Overhead 为 Encrypt 相对明文增加的字节数。
func (e *AEADHMACEncryptor) Overhead() int {
	return versionSize + e.aead.NonceSize() + e.aead.Overhead() + macSize
}

func (e *AEADHMACEncryptor) sign(dst, sealed, aad []byte) []byte {
	m := e.macs.Get().(hash.Hash)
	defer e.macs.Put(m)
	m.Reset()
	_, _ = m.Write(sealed)
	_, _ = m.Write(aad)
	_, _ = m.Write(binary.BigEndian.AppendUint64(nil, uint64(len(aad))))
	return m.Sum(dst)
}

func (e *AEADHMACEncryptor) Encrypt(plaintext, aad []byte) ([]byte, error) {
	head := versionSize + e.aead.NonceSize()
	packet := make([]byte, head, len(plaintext)+e.Overhead())
	packet[0] = sealVersion
	if _, err := io.ReadFull(rand.Reader, packet[versionSize:]); err != nil {
		return nil, errors.Wrap(err, "crypto: nonce")
	}
	packet = e.aead.Seal(packet, packet[versionSize:head], plaintext, aad)
	return e.sign(packet, packet, aad), nil
}

// Decrypt 校验版本与 MAC 后才解密，aad 必须与加密时一致。
func (e *AEADHMACEncryptor) Decrypt(packet, aad []byte) ([]byte, error) {
	head := versionSize + e.aead.NonceSize()
	if len(packet) < head+e.aead.Overhead()+macSize {
		return nil, errors.Wrapf(ErrPacketTooShort, "%d bytes", len(packet))
	}
	if packet[0] != sealVersion {
		return nil, errors.Wrapf(ErrPacketVersion, "version %d", packet[0])
	}

	sealed, tag := packet[:len(packet)-macSize], packet[len(packet)-macSize:]
	if !hmac.Equal(e.sign(nil, sealed, aad), tag) {
		return nil, ErrInvalidMAC
	}
	plaintext, err := e.aead.Open(nil, sealed[versionSize:head], sealed[head:], aad)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: open")
	}
	return plaintext, nil
}
