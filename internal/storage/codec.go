package storage

import (
	"encoding/json"
	"errors"

	"xcs/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned returns the version stamp for new records.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodePopulation(s model.PopulationSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodePopulation(data []byte) (model.PopulationSnapshot, error) {
	var snapshot model.PopulationSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.PopulationSnapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.PopulationSnapshot{}, err
	}
	return snapshot, nil
}

func EncodeLearnTrack(t model.LearnTrack) ([]byte, error) {
	return json.Marshal(t)
}

func DecodeLearnTrack(data []byte) (model.LearnTrack, error) {
	var track model.LearnTrack
	if err := json.Unmarshal(data, &track); err != nil {
		return model.LearnTrack{}, err
	}
	if err := checkVersion(track.VersionedRecord); err != nil {
		return model.LearnTrack{}, err
	}
	return track, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
