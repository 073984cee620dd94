package village

import "xdao.co/villages/canon"

// Member is one entry of the append-only members log.
type Member struct {
	MemberID  string `json:"member_id"`
	Role      string `json:"role"`
	AddedAt   string `json:"added_at"`
	TokenHash string `json:"token_hash"`
}

// AddMember appends a new member record with token_hash computed from
// tokenPlain; the plaintext token is never persisted.
func (s *Store) AddMember(villageID, memberID, role, tokenPlain string) (Member, error) {
	m := Member{
		MemberID:  memberID,
		Role:      role,
		AddedAt:   canon.Time(canon.NowUTC()),
		TokenHash: canon.SHA256Hex([]byte(tokenPlain)),
	}
	row := map[string]any{
		"member_id":  m.MemberID,
		"role":       m.Role,
		"added_at":   m.AddedAt,
		"token_hash": m.TokenHash,
	}
	if err := appendJSONL(s.membersPath(villageID), row); err != nil {
		return Member{}, err
	}
	return m, nil
}

// ListMembers returns every member ever added for villageID (append-only;
// callers combine with IsTokenRevoked to determine current auth state).
func (s *Store) ListMembers(villageID string) ([]Member, error) {
	rows, err := readJSONL(s.membersPath(villageID))
	if err != nil {
		return nil, err
	}
	members := make([]Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, Member{
			MemberID:  strField(r, "member_id"),
			Role:      strField(r, "role"),
			AddedAt:   strField(r, "added_at"),
			TokenHash: strField(r, "token_hash"),
		})
	}
	return members, nil
}

func strField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// Revocation is one entry of the append-only revocations log.
type Revocation struct {
	TokenHash string `json:"token_hash"`
	At        string `json:"at"`
	Actor     string `json:"actor,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// RevokeTokenHash appends a revocation record for tokenHash.
func (s *Store) RevokeTokenHash(villageID, tokenHash, actor, reason string) error {
	row := map[string]any{
		"token_hash": tokenHash,
		"at":         canon.Time(canon.NowUTC()),
	}
	if actor != "" {
		row["actor"] = actor
	}
	if reason != "" {
		row["reason"] = reason
	}
	return appendJSONL(s.revocationsPath(villageID), row)
}

// IsTokenRevoked scans villageID's revocations log for tokenHash.
func (s *Store) IsTokenRevoked(villageID, tokenHash string) (bool, error) {
	rows, err := readJSONL(s.revocationsPath(villageID))
	if err != nil {
		return false, err
	}
	for _, r := range rows {
		if strField(r, "token_hash") == tokenHash {
			return true, nil
		}
	}
	return false, nil
}

// Authorize returns the most recently added, unrevoked member whose
// token_hash matches sha256_hex(bearerToken), or ok=false.
func (s *Store) Authorize(villageID, bearerToken string) (Member, bool, error) {
	tokenHash := canon.SHA256Hex([]byte(bearerToken))
	revoked, err := s.IsTokenRevoked(villageID, tokenHash)
	if err != nil {
		return Member{}, false, err
	}
	if revoked {
		return Member{}, false, nil
	}
	members, err := s.ListMembers(villageID)
	if err != nil {
		return Member{}, false, err
	}
	var found Member
	ok := false
	for _, m := range members {
		if m.TokenHash == tokenHash {
			found = m
			ok = true
		}
	}
	return found, ok, nil
}

// RevokeMember revokes every token_hash ever issued to memberID,
// returning the number of distinct tokens revoked.
func (s *Store) RevokeMember(villageID, memberID, actor, reason string) (int, error) {
	members, err := s.ListMembers(villageID)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool)
	count := 0
	for _, m := range members {
		if m.MemberID != memberID || seen[m.TokenHash] {
			continue
		}
		seen[m.TokenHash] = true
		already, err := s.IsTokenRevoked(villageID, m.TokenHash)
		if err != nil {
			return count, err
		}
		if already {
			continue
		}
		if err := s.RevokeTokenHash(villageID, m.TokenHash, actor, reason); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// RotateMemberToken revokes memberID's current tokens and adds a fresh
// one under the same role, preserving the most recently seen role.
func (s *Store) RotateMemberToken(villageID, memberID, newTokenPlain, actor string) (Member, error) {
	members, err := s.ListMembers(villageID)
	if err != nil {
		return Member{}, err
	}
	role := "observer"
	for _, m := range members {
		if m.MemberID == memberID {
			role = m.Role
		}
	}
	if _, err := s.RevokeMember(villageID, memberID, actor, "rotate"); err != nil {
		return Member{}, err
	}
	return s.AddMember(villageID, memberID, role, newTokenPlain)
}
