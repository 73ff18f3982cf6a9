package crypto

// Encryptor 抽象了帧载荷的加密方案。
//
// aad（Associated Data）不加密，但受完整性保护，codec 用它绑定帧头字段。
type Encryptor interface {
	Encrypt(plaintext, aad []byte) (packet []byte, err error)
	Decrypt(packet, aad []byte) (plaintext []byte, err error)
}

// NopEncryptor 透传数据，用于关闭加密。
type NopEncryptor struct{}

func (NopEncryptor) Encrypt(plaintext, _ []byte) ([]byte, error) {
	return plaintext, nil
}

func (NopEncryptor) Decrypt(packet, _ []byte) ([]byte, error) {
	return packet, nil
}

var _ Encryptor = NopEncryptor{}
