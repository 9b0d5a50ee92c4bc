package zeroframe

import "context"

// GenerateNew asks aesEncrypt to generate a fresh key or iv.
const GenerateNew = "generate new"

// UserPublickey returns the user's public key for the current site.
func (c *Client) UserPublickey(ctx context.Context) (string, error) {
	return call[string](ctx, c, "userPublickey")
}

// UserPublickeyAt returns the user's public key with the given derivation index.
func (c *Client) UserPublickeyAt(ctx context.Context, index int) (string, error) {
	return call[string](ctx, c, "userPublickey", index)
}

// EciesEncrypt encrypts text for the user's public key at publickeyIndex.
func (c *Client) EciesEncrypt(ctx context.Context, text string, publickeyIndex int) (string, error) {
	return call[string](ctx, c, "eciesEncrypt", text, publickeyIndex, false)
}

// EciesEncryptWithKey encrypts text and also returns the AES key the host used.
func (c *Client) EciesEncryptWithKey(ctx context.Context, text string, publickeyIndex int) (encrypted, aesKey string, err error) {
	parts, err := call[[2]string](ctx, c, "eciesEncrypt", text, publickeyIndex, true)
	if err != nil {
		return "", "", err
	}
	return parts[0], parts[1], nil
}

// EciesDecrypt decrypts one ECIES message with the private key at privatekeyIndex.
func (c *Client) EciesDecrypt(ctx context.Context, encrypted string, privatekeyIndex int) (string, error) {
	return call[string](ctx, c, "eciesDecrypt", encrypted, privatekeyIndex)
}

// EciesDecryptMultiple decrypts several messages. Entries the key cannot decrypt are nil.
func (c *Client) EciesDecryptMultiple(ctx context.Context, encrypted []string, privatekeyIndex int) ([]*string, error) {
	if encrypted == nil {
		encrypted = []string{}
	}
	return call[[]*string](ctx, c, "eciesDecrypt", encrypted, privatekeyIndex)
}

// AesEncrypt encrypts text. Empty key or iv are generated by the host.
func (c *Client) AesEncrypt(ctx context.Context, text, key, iv string) (AesEncrypted, error) {
	if key == "" {
		key = GenerateNew
	}
	if iv == "" {
		iv = GenerateNew
	}
	return call[AesEncrypted](ctx, c, "aesEncrypt", text, key, iv)
}

// AesDecrypt decrypts one message.
func (c *Client) AesDecrypt(ctx context.Context, iv, encrypted, key string) (string, error) {
	return call[string](ctx, c, "aesDecrypt", iv, encrypted, key)
}

// AesCiphertext is an iv and ciphertext pair for AesDecryptMultiple.
type AesCiphertext struct {
	IV        string
	Encrypted string
}

// AesDecryptMultiple tries every key against every message. Entries no key
// decrypts are nil.
func (c *Client) AesDecryptMultiple(ctx context.Context, messages []AesCiphertext, keys []string) ([]*string, error) {
	pairs := make([][2]string, 0, len(messages))
	for _, m := range messages {
		pairs = append(pairs, [2]string{m.IV, m.Encrypted})
	}
	if keys == nil {
		keys = []string{}
	}
	return call[[]*string](ctx, c, "aesDecrypt", pairs, keys)
}
