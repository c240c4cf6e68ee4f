package routeros

import (
	"crypto/md5"
	"encoding/hex"
)

// Login authenticates against the router, transparently handling both
// authentication flows RouterOS has used:
//
//   - post-6.43: the first /login reply is a bare !done, no further round
//     trip is needed.
//   - pre-6.43: the first /login reply's !done carries =ret=<hex challenge>.
//     A second /login is sent with an MD5 response computed over a leading
//     0x00 byte, the UTF-8 password, and the decoded challenge bytes.
func (c *Client) Login(user, password string) error {
	reply, err := c.RunCommand("/login", map[string]string{
		"name":     user,
		"password": password,
	})
	if err != nil {
		return &LoginFailedError{Err: err}
	}

	challenge, ok := reply.Lookup("ret")
	if !ok {
		return nil
	}

	response, err := challengeResponse(password, challenge)
	if err != nil {
		return &LoginFailedError{Err: err}
	}

	if _, err := c.RunCommand("/login", map[string]string{
		"name":     user,
		"response": response,
	}); err != nil {
		return &LoginFailedError{Err: err}
	}
	return nil
}

// challengeResponse computes the legacy MD5 challenge-response string:
// literal "00" followed by the lowercase hex MD5 digest of a leading 0x00
// byte, the password, and the hex-decoded challenge. hex.DecodeString
// already accepts mixed-case input and rejects odd-length strings, so no
// bespoke validation is needed here.
func challengeResponse(password, challenge string) (string, error) {
	decoded, err := hex.DecodeString(challenge)
	if err != nil {
		return "", err
	}

	h := md5.New()
	h.Write([]byte{0})
	h.Write([]byte(password))
	h.Write(decoded)

	return "00" + hex.EncodeToString(h.Sum(nil)), nil
}
