package storage

import (
	"encoding/json"
	"errors"

	"genoloc/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion stamps new records.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeStudy(s model.StudyRecord) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeStudy(data []byte) (model.StudyRecord, error) {
	var study model.StudyRecord
	if err := json.Unmarshal(data, &study); err != nil {
		return model.StudyRecord{}, err
	}
	if err := checkVersion(study.VersionedRecord); err != nil {
		return model.StudyRecord{}, err
	}
	return study, nil
}

func EncodePair(r model.PairRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodePair(data []byte) (model.PairRecord, error) {
	var record model.PairRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.PairRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.PairRecord{}, err
	}
	return record, nil
}

func EncodePairs(records []model.PairRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodePairs(data []byte) ([]model.PairRecord, error) {
	var records []model.PairRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
