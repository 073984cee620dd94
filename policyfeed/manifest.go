package policyfeed

import (
	"encoding/hex"

	"xdao.co/villages/canon"
	"xdao.co/villages/cryptoutil"
	"xdao.co/villages/policyupdate"
)

// ManifestItem is one entry of a feed manifest.
type ManifestItem struct {
	CreatedAt          string `json:"created_at"`
	PolicyHash         string `json:"policy_hash"`
	UpdateHash         string `json:"update_hash"`
	PreviousPolicyHash string `json:"previous_policy_hash,omitempty"`
	LifecycleState     string `json:"lifecycle_state"`
	ActivationTime     string `json:"activation_time,omitempty"`
	ActivationHeight   *int64 `json:"activation_height,omitempty"`
}

// Manifest is the signed snapshot of a village's policy feed.
type Manifest struct {
	VillageID      string         `json:"village_id"`
	GeneratedAt    string         `json:"generated_at"`
	HeadPolicyHash string         `json:"head_policy_hash,omitempty"`
	Count          int            `json:"count"`
	MerkleRoot     string         `json:"merkle_root"`
	ChainHead      string         `json:"chain_head"`
	Items          []ManifestItem `json:"items"`
	PublicKey      string         `json:"public_key,omitempty"`
	Signature      string         `json:"signature,omitempty"`
}

// BuildManifest constructs the manifest for villageID from its
// currently stored feed.
func (f *Feed) BuildManifest(villageID string) (Manifest, error) {
	updates, err := f.Iter(villageID)
	if err != nil {
		return Manifest{}, err
	}

	items := make([]ManifestItem, 0, len(updates))
	updateHashes := make([]string, 0, len(updates))
	for _, u := range updates {
		uh, err := policyupdate.ComputeUpdateHash(u)
		if err != nil {
			return Manifest{}, err
		}
		updateHashes = append(updateHashes, uh)

		item := ManifestItem{
			UpdateHash: uh,
		}
		item.CreatedAt, _ = u["created_at"].(string)
		item.PolicyHash, _ = u["policy_hash"].(string)
		item.PreviousPolicyHash, _ = u["previous_policy_hash"].(string)
		item.LifecycleState, _ = u["lifecycle_state"].(string)
		item.ActivationTime, _ = u["activation_time"].(string)
		if h, ok := u["activation_height"].(float64); ok {
			hv := int64(h)
			item.ActivationHeight = &hv
		}
		items = append(items, item)
	}

	m := Manifest{
		VillageID:   villageID,
		GeneratedAt: canon.Time(canon.NowUTC()),
		Count:       len(items),
		MerkleRoot:  MerkleRoot(updateHashes),
		ChainHead:   ChainHead(updateHashes),
		Items:       items,
	}
	if len(items) > 0 {
		m.HeadPolicyHash = items[len(items)-1].PolicyHash
	}
	return m, nil
}

// MerkleRoot computes the unbalanced binary Merkle root over
// hexUpdateHashes: odd layers duplicate the last node. An empty list
// hashes to sha256_hex(empty).
func MerkleRoot(hexUpdateHashes []string) string {
	if len(hexUpdateHashes) == 0 {
		return canon.SHA256Hex(nil)
	}
	layer := make([][]byte, len(hexUpdateHashes))
	for i, h := range hexUpdateHashes {
		b, err := hex.DecodeString(h)
		if err != nil {
			b = []byte(h)
		}
		layer[i] = b
	}
	for len(layer) > 1 {
		if len(layer)%2 == 1 {
			layer = append(layer, layer[len(layer)-1])
		}
		next := make([][]byte, 0, len(layer)/2)
		for i := 0; i < len(layer); i += 2 {
			combined := append(append([]byte{}, layer[i]...), layer[i+1]...)
			sum := canon.SHA256Hex(combined)
			b, _ := hex.DecodeString(sum)
			next = append(next, b)
		}
		layer = next
	}
	return hex.EncodeToString(layer[0])
}

// ChainHead computes the iterated hash chain H_i = sha256(H_{i-1} ||
// update_hash_i), H_0 = 32 zero bytes. An empty list returns the zero
// seed itself.
func ChainHead(hexUpdateHashes []string) string {
	head, err := hex.DecodeString(canon.ZeroHash32Hex)
	if err != nil {
		panic(err)
	}
	for _, h := range hexUpdateHashes {
		next, err := hex.DecodeString(h)
		if err != nil {
			next = []byte(h)
		}
		combined := append(append([]byte{}, head...), next...)
		sum := canon.SHA256Hex(combined)
		head, _ = hex.DecodeString(sum)
	}
	return hex.EncodeToString(head)
}

// SignManifest signs m's payload (with public_key/signature stripped)
// with seed.
func SignManifest(m Manifest, seed []byte) (Manifest, error) {
	m.PublicKey = ""
	m.Signature = ""
	payload, err := canon.Marshal(m)
	if err != nil {
		return Manifest{}, err
	}
	sig, err := cryptoCtxSign(seed, payload)
	if err != nil {
		return Manifest{}, err
	}
	pub, err := cryptoutil.PublicKeyB64(seed)
	if err != nil {
		return Manifest{}, err
	}
	m.PublicKey = pub
	m.Signature = sig
	return m, nil
}

func cryptoCtxSign(seed, payload []byte) (string, error) {
	return cryptoutil.Sign(seed, payload)
}

// VerifyManifest reports whether m carries a valid signature, and (if
// trustedKeyHashes is non-empty) that the signer's key-hash is in the
// trusted set.
func VerifyManifest(m Manifest, trustedKeyHashes []string) bool {
	if m.PublicKey == "" || m.Signature == "" {
		return false
	}
	signed := m
	signed.PublicKey = ""
	signed.Signature = ""
	payload, err := canon.Marshal(signed)
	if err != nil {
		return false
	}
	if !cryptoutil.Verify(m.PublicKey, m.Signature, payload) {
		return false
	}
	if len(trustedKeyHashes) == 0 {
		return true
	}
	keyHash, err := cryptoutil.KeyHashFromPublicKeyB64(m.PublicKey)
	if err != nil {
		return false
	}
	for _, h := range trustedKeyHashes {
		if h == keyHash {
			return true
		}
	}
	return false
}
