package template

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

var errPadding = errors.New("invalid pkcs7 padding")

// aesMode 加解密一段数据, iv 在 ECB 模式下忽略
type aesMode struct {
	needIV  bool
	encrypt func(block cipher.Block, iv, data []byte) ([]byte, error)
	decrypt func(block cipher.Block, iv, data []byte) ([]byte, error)
}

// aesFunc 参数为 (value, key) 或 (value, key, iv), key 和 iv 按原始字节使用
//
// 加密: value 为明文, 返回 base64 密文.
// 解密: value 为 base64 密文, 返回 base64 编码后的明文.
func aesFunc(name string, mode aesMode, encrypt bool) Func {
	return func(args ...any) (any, error) {
		want := 2
		if mode.needIV {
			want = 3
		}
		if err := argCount(name, args, want, want); err != nil {
			return nil, err
		}
		value, err := argString(name, args, 0)
		if err != nil {
			return nil, err
		}
		key, err := argString(name, args, 1)
		if err != nil {
			return nil, err
		}
		var iv []byte
		if mode.needIV {
			ivStr, err := argString(name, args, 2)
			if err != nil {
				return nil, err
			}
			if len(ivStr) != aes.BlockSize {
				return nil, fmt.Errorf("%s: iv must be %d bytes, got %d", name, aes.BlockSize, len(ivStr))
			}
			iv = []byte(ivStr)
		}

		block, err := aes.NewCipher([]byte(key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		if encrypt {
			out, err := mode.encrypt(block, iv, []byte(value))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return base64.StdEncoding.EncodeToString(out), nil
		}

		data, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("%s: ciphertext is not base64: %w", name, err)
		}
		out, err := mode.decrypt(block, iv, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return base64.StdEncoding.EncodeToString(out), nil
	}
}

var aesECB = aesMode{
	encrypt: func(block cipher.Block, _, data []byte) ([]byte, error) {
		data = pkcs7Pad(data, block.BlockSize())
		out := make([]byte, len(data))
		for i := 0; i < len(data); i += block.BlockSize() {
			block.Encrypt(out[i:i+block.BlockSize()], data[i:i+block.BlockSize()])
		}
		return out, nil
	},
	decrypt: func(block cipher.Block, _, data []byte) ([]byte, error) {
		if len(data) == 0 || len(data)%block.BlockSize() != 0 {
			return nil, fmt.Errorf("ciphertext is not a multiple of the block size")
		}
		out := make([]byte, len(data))
		for i := 0; i < len(data); i += block.BlockSize() {
			block.Decrypt(out[i:i+block.BlockSize()], data[i:i+block.BlockSize()])
		}
		return pkcs7Unpad(out, block.BlockSize())
	},
}

var aesCBC = aesMode{
	needIV: true,
	encrypt: func(block cipher.Block, iv, data []byte) ([]byte, error) {
		data = pkcs7Pad(data, block.BlockSize())
		out := make([]byte, len(data))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
		return out, nil
	},
	decrypt: func(block cipher.Block, iv, data []byte) ([]byte, error) {
		if len(data) == 0 || len(data)%block.BlockSize() != 0 {
			return nil, fmt.Errorf("ciphertext is not a multiple of the block size")
		}
		out := make([]byte, len(data))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
		return pkcs7Unpad(out, block.BlockSize())
	},
}

// CTR 是流模式, 不做填充
var aesCTR = aesMode{
	needIV: true,
	encrypt: func(block cipher.Block, iv, data []byte) ([]byte, error) {
		out := make([]byte, len(data))
		cipher.NewCTR(block, iv).XORKeyStream(out, data)
		return out, nil
	},
	decrypt: func(block cipher.Block, iv, data []byte) ([]byte, error) {
		out := make([]byte, len(data))
		cipher.NewCTR(block, iv).XORKeyStream(out, data)
		return out, nil
	},
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errPadding
		}
	}
	return data[:len(data)-n], nil
}
