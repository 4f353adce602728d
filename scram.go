package qail

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/qail-io/qail-go/pkg/codec"
	"github.com/qail-io/qail-go/pkg/types"
)

// scramMechanism is the only SASL mechanism implemented by the driver.
// SCRAM-SHA-256-PLUS requires channel binding and is not offered.
const scramMechanism = "SCRAM-SHA-256"

// scramAuth performs the SCRAM-SHA-256 exchange as specified by RFC 5802 and
// RFC 7677. The exchange owns the message loop until the final server
// signature has been verified, the trailing AuthenticationOk is consumed by
// the startup loop.
func (c *Conn) scramAuth(mechanisms []string) error {
	supported := false
	for _, mechanism := range mechanisms {
		if mechanism == scramMechanism {
			supported = true
			break
		}
	}

	if !supported {
		return fmt.Errorf("%w: server offers %v", ErrUnsupportedAuth, mechanisms)
	}

	if c.config.Password == "" {
		return ErrPasswordRequired
	}

	nonce, err := clientNonce()
	if err != nil {
		return err
	}

	clientFirstBare := "n=" + c.config.User + ",r=" + nonce
	initial := "n,," + clientFirstBare
	if err := codec.WriteSASLInitialResponse(c.writer, scramMechanism, []byte(initial)); err != nil {
		return err
	}

	if err := c.flush(); err != nil {
		return err
	}

	serverFirst, err := c.readSASLData(types.AuthSASLContinue)
	if err != nil {
		return err
	}

	serverNonce, salt, iterations, err := parseServerFirst(serverFirst)
	if err != nil {
		return err
	}

	// the server nonce must extend the client nonce, anything else indicates
	// a replayed or tampered exchange
	if !strings.HasPrefix(serverNonce, nonce) {
		return fmt.Errorf("%w: server nonce does not extend the client nonce", ErrScramFailure)
	}

	withoutProof := "c=biws,r=" + serverNonce
	authMessage := clientFirstBare + "," + serverFirst + "," + withoutProof
	proof, serverSignature := deriveSCRAM(c.config.Password, salt, iterations, authMessage)

	final := withoutProof + ",p=" + base64.StdEncoding.EncodeToString(proof)
	if err := codec.WriteSASLResponse(c.writer, []byte(final)); err != nil {
		return err
	}

	if err := c.flush(); err != nil {
		return err
	}

	serverFinal, err := c.readSASLData(types.AuthSASLFinal)
	if err != nil {
		return err
	}

	signature, found := strings.CutPrefix(serverFinal, "v=")
	if !found {
		return fmt.Errorf("%w: server final message carries no signature", ErrScramFailure)
	}

	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed server signature: %v", ErrScramFailure, err)
	}

	if !hmac.Equal(serverSignature, expected) {
		return fmt.Errorf("%w: server signature mismatch", ErrScramFailure)
	}

	return nil
}

// deriveSCRAM computes the client proof and the expected server signature of
// a SCRAM-SHA-256 exchange as specified by RFC 5802:
//
//	SaltedPassword  := PBKDF2-HMAC-SHA-256(password, salt, iterations)
//	ClientKey       := HMAC(SaltedPassword, "Client Key")
//	StoredKey       := SHA-256(ClientKey)
//	ClientSignature := HMAC(StoredKey, AuthMessage)
//	ClientProof     := ClientKey XOR ClientSignature
//	ServerKey       := HMAC(SaltedPassword, "Server Key")
//	ServerSignature := HMAC(ServerKey, AuthMessage)
func deriveSCRAM(password string, salt []byte, iterations int, authMessage string) (proof, serverSignature []byte) {
	saltedPassword := pbkdf2.Key([]byte(password), salt, iterations, sha256.Size, sha256.New)
	clientKey := hmacSHA256(saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)

	clientSignature := hmacSHA256(storedKey[:], []byte(authMessage))
	proof = make([]byte, len(clientKey))
	for i := range clientKey {
		proof[i] = clientKey[i] ^ clientSignature[i]
	}

	serverKey := hmacSHA256(saltedPassword, []byte("Server Key"))
	return proof, hmacSHA256(serverKey, []byte(authMessage))
}

// readSASLData reads the next authentication message of the exchange,
// absorbing the asynchronous messages which may arrive interleaved.
func (c *Conn) readSASLData(expected types.AuthType) (string, error) {
	for {
		t, err := c.readMessage()
		if err != nil {
			return "", err
		}

		absorbed, err := c.absorbAsync(t)
		if err != nil {
			return "", err
		}
		if absorbed {
			continue
		}

		switch t {
		case types.BackendAuth:
			request, err := codec.ReadAuth(c.reader)
			if err != nil {
				return "", err
			}

			if request.Type != expected {
				return "", fmt.Errorf("%w: expected SASL sub-code %d, received %d", ErrScramFailure, expected, request.Type)
			}

			return string(request.Data), nil
		case types.BackendErrorResponse:
			server, err := codec.ReadError(c.reader)
			if err != nil {
				return "", err
			}

			return "", server
		default:
			return "", fmt.Errorf("unexpected message %s during SASL exchange: %w", t, ErrProtocol)
		}
	}
}

// clientNonce produces the per-exchange client nonce: 24 random bytes
// base64 encoded.
func clientNonce() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("unable to generate a client nonce: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// parseServerFirst parses the server-first message
// r=<nonce>,s=<salt-b64>,i=<iterations>.
func parseServerFirst(message string) (nonce string, salt []byte, iterations int, err error) {
	for _, attribute := range strings.Split(message, ",") {
		value := attribute
		if len(attribute) >= 2 {
			value = attribute[2:]
		}

		switch {
		case strings.HasPrefix(attribute, "r="):
			nonce = value
		case strings.HasPrefix(attribute, "s="):
			salt, err = base64.StdEncoding.DecodeString(value)
			if err != nil {
				return "", nil, 0, fmt.Errorf("%w: malformed salt: %v", ErrScramFailure, err)
			}
		case strings.HasPrefix(attribute, "i="):
			iterations, err = strconv.Atoi(value)
			if err != nil || iterations <= 0 {
				return "", nil, 0, fmt.Errorf("%w: malformed iteration count %q", ErrScramFailure, value)
			}
		}
	}

	if nonce == "" || len(salt) == 0 || iterations == 0 {
		return "", nil, 0, fmt.Errorf("%w: incomplete server first message %q", ErrScramFailure, message)
	}

	return nonce, salt, iterations, nil
}

func hmacSHA256(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}
