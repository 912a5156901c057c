package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// MinRSAKeyBits is the minimum accepted RSA modulus size. Weak keys are
// rejected when the key set is loaded, not per-request.
const MinRSAKeyBits = 2048

var ErrNoKeys = errors.New("auth: key set contains no usable public keys")

// LoadKeySet reads PEM-encoded RSA public keys from the given files. Each
// file may contain multiple PEM blocks; PKIX (`PUBLIC KEY`), PKCS#1
// (`RSA PUBLIC KEY`) and certificate blocks are accepted.
//
// Any unreadable file, unparsable block, non-RSA key, or key below
// MinRSAKeyBits is a hard error so misconfiguration aborts startup instead
// of silently shrinking the trust set.
func LoadKeySet(paths []string) ([]*rsa.PublicKey, error) {
	var keys []*rsa.PublicKey
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("auth: read key file: %w", err)
		}
		parsed, err := parsePEMKeys(raw)
		if err != nil {
			return nil, fmt.Errorf("auth: %s: %w", path, err)
		}
		keys = append(keys, parsed...)
	}
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	return keys, nil
}

func parsePEMKeys(raw []byte) ([]*rsa.PublicKey, error) {
	var keys []*rsa.PublicKey
	rest := raw
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		key, err := parsePEMBlock(block)
		if err != nil {
			return nil, err
		}
		if key.N.BitLen() < MinRSAKeyBits {
			return nil, fmt.Errorf("rsa key is %d bits, need >= %d", key.N.BitLen(), MinRSAKeyBits)
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, errors.New("no PEM public key blocks found")
	}
	return keys, nil
}

func parsePEMBlock(block *pem.Block) (*rsa.PublicKey, error) {
	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKIX public key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("unsupported public key type %T (want RSA)", key)
		}
		return rsaKey, nil
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#1 public key: %w", err)
		}
		return key, nil
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		rsaKey, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("unsupported certificate key type %T (want RSA)", cert.PublicKey)
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}
