package qail

import (
	"crypto/md5" //nolint:gosec // mandated by the PostgreSQL MD5 authentication scheme
	"encoding/hex"
	"fmt"

	"github.com/qail-io/qail-go/pkg/codec"
	"github.com/qail-io/qail-go/pkg/types"
)

// authenticate answers a single backend authentication request during the
// startup handshake. AuthenticationOk requires no response, the handshake
// continues until ReadyForQuery.
func (c *Conn) authenticate(request codec.AuthRequest) error {
	switch request.Type {
	case types.AuthOK:
		c.logger.Debug("connection authenticated")
		return nil
	case types.AuthCleartextPassword:
		if c.config.Password == "" {
			return ErrPasswordRequired
		}

		if err := codec.WritePassword(c.writer, []byte(c.config.Password)); err != nil {
			return err
		}

		return c.flush()
	case types.AuthMD5Password:
		if c.config.Password == "" {
			return ErrPasswordRequired
		}

		digest := md5Password(c.config.User, c.config.Password, request.Salt)
		if err := codec.WritePassword(c.writer, []byte(digest)); err != nil {
			return err
		}

		return c.flush()
	case types.AuthSASL:
		return c.scramAuth(request.Mechanisms)
	default:
		return fmt.Errorf("%w: authentication sub-code %d", ErrUnsupportedAuth, request.Type)
	}
}

// md5Password computes the PostgreSQL MD5 password response:
// "md5" + hex(md5(hex(md5(password + user)) + salt)). The salt is the 4 raw
// bytes following the authentication sub-code.
func md5Password(user, password string, salt []byte) string {
	inner := md5.Sum([]byte(password + user)) //nolint:gosec
	digest := make([]byte, 0, hex.EncodedLen(md5.Size)+len(salt))
	digest = append(digest, []byte(hex.EncodeToString(inner[:]))...)
	digest = append(digest, salt...)
	outer := md5.Sum(digest) //nolint:gosec
	return "md5" + hex.EncodeToString(outer[:])
}
