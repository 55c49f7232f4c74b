package devserver

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"sync"
	"time"
)

// User is an account held by the dev server.
type User struct {
	ID           int64
	Username     string
	Email        string
	ScreenName   string
	GPA          *float64
	PasswordHash []byte
	Active       bool
	Joined       time.Time
}

// tokenKind separates activation and reset tokens: a token issued in one
// namespace is never found in the other.
type tokenKind int

const (
	activationTokens tokenKind = iota
	resetTokens
)

type oneTimeToken struct {
	userID  int64
	expires time.Time
}

// store is the in-memory account database. Callers hold mu.
type store struct {
	mu         sync.Mutex
	nextID     int64
	users      map[int64]*User
	byUsername map[string]int64
	byEmail    map[string]int64
	tokens     map[tokenKind]map[string]oneTimeToken
}

func newStore() *store {
	return &store{
		nextID:     1,
		users:      map[int64]*User{},
		byUsername: map[string]int64{},
		byEmail:    map[string]int64{},
		tokens: map[tokenKind]map[string]oneTimeToken{
			activationTokens: {},
			resetTokens:      {},
		},
	}
}

func (st *store) insert(u *User) {
	u.ID = st.nextID
	st.nextID++
	st.users[u.ID] = u
	st.byUsername[u.Username] = u.ID
	st.byEmail[u.Email] = u.ID
}

// remove deletes a user together with every token it holds.
func (st *store) remove(id int64) {
	u, ok := st.users[id]
	if !ok {
		return
	}
	delete(st.users, id)
	delete(st.byUsername, u.Username)
	delete(st.byEmail, u.Email)
	for kind := range st.tokens {
		st.revokeTokens(kind, id)
	}
}

func (st *store) userByUsername(username string) (*User, bool) {
	id, ok := st.byUsername[username]
	if !ok {
		return nil, false
	}
	return st.users[id], true
}

func (st *store) userByEmail(email string) (*User, bool) {
	id, ok := st.byEmail[email]
	if !ok {
		return nil, false
	}
	return st.users[id], true
}

func (st *store) issueToken(kind tokenKind, userID int64, expires time.Time) (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	st.tokens[kind][token] = oneTimeToken{userID: userID, expires: expires}
	return token, nil
}

// validToken reports whether token is in kind's namespace, belongs to
// userID and has not expired. The token is left in place.
func (st *store) validToken(kind tokenKind, token string, userID int64, now time.Time) bool {
	t, ok := st.tokens[kind][token]
	return ok && t.userID == userID && now.Before(t.expires)
}

// consumeToken removes token from kind's namespace if it belongs to userID
// and has not expired. It reports whether the token was valid.
func (st *store) consumeToken(kind tokenKind, token string, userID int64, now time.Time) bool {
	t, ok := st.tokens[kind][token]
	if !ok || t.userID != userID {
		return false
	}
	delete(st.tokens[kind], token)
	return now.Before(t.expires)
}

// revokeTokens drops every token of kind held by userID.
func (st *store) revokeTokens(kind tokenKind, userID int64) {
	for token, t := range st.tokens[kind] {
		if t.userID == userID {
			delete(st.tokens[kind], token)
		}
	}
}

// encodeUID renders a user id the way activation and reset links carry it:
// unpadded URL-safe base64 of the decimal id.
func encodeUID(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

func decodeUID(uid string) (int64, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
