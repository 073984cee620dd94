package audit

import (
	"path/filepath"

	"xdao.co/villages/canon"
	"xdao.co/villages/cryptoutil"
	"xdao.co/villages/fsstore"
)

const DenialFormat = "villages.denial.v1"

// Denial is a signed artifact recording why a bundle or update was
// rejected, stored next to the rejected artifact.
type Denial struct {
	Format      string         `json:"format"`
	TS          string         `json:"ts"`
	VillageID   string         `json:"village_id,omitempty"`
	Actor       string         `json:"actor,omitempty"`
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id"`
	Reason      string         `json:"reason"`
	Meta        map[string]any `json:"meta,omitempty"`
	ArtifactHash string        `json:"artifact_hash,omitempty"`
	Signature   string         `json:"signature,omitempty"`
}

// WriteDenial builds, hashes, optionally signs (when nodeSeed is
// non-nil), and persists a denial artifact at
// store/rejected/[village_id/]{subject_id}.denial.json (or
// store/quarantine equivalent, chosen by caller via dir).
func WriteDenial(dir, subjectType, subjectID, villageID, actor, reason string, meta map[string]any, nodeSeed []byte) (Denial, error) {
	d := Denial{
		Format:      DenialFormat,
		TS:          canon.Time(canon.NowUTC()),
		VillageID:   villageID,
		Actor:       actor,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Reason:      reason,
		Meta:        meta,
	}
	hashInput := d
	hashInput.ArtifactHash = ""
	hashInput.Signature = ""
	hash, err := canon.HashJSON(hashInput)
	if err != nil {
		return Denial{}, err
	}
	d.ArtifactHash = hash

	if len(nodeSeed) > 0 {
		sig, err := cryptoutil.Sign(nodeSeed, []byte(hash))
		if err != nil {
			return Denial{}, err
		}
		d.Signature = sig
	}

	data, err := canon.Marshal(d)
	if err != nil {
		return Denial{}, err
	}
	path := filepath.Join(dir, subjectID+".denial.json")
	if _, err := fsstore.WriteOnceExclusive(path, data); err != nil && err != fsstore.ErrAlreadyExists {
		return Denial{}, err
	}
	return d, nil
}
