package interfaces

import (
	"encoding/json"
	"fmt"

	"github.com/flagmill/go-server-sdk/ldmodel"
)

// DataKindFeatures returns the StoreDataKind instance corresponding to feature flag data.
func DataKindFeatures() StoreDataKind {
	return featuresKind
}

// DataKindSegments returns the StoreDataKind instance corresponding to segment data.
func DataKindSegments() StoreDataKind {
	return segmentsKind
}

// AllStoreDataKinds returns all the data kinds that the SDK can store.
func AllStoreDataKinds() []StoreDataKind {
	return []StoreDataKind{featuresKind, segmentsKind}
}

var (
	featuresKind = featureFlagStoreDataKind{}
	segmentsKind = segmentStoreDataKind{}
)

type featureFlagStoreDataKind struct{}

func (fk featureFlagStoreDataKind) GetName() string {
	return "features"
}

func (fk featureFlagStoreDataKind) Serialize(item StoreItemDescriptor) []byte {
	if item.Item == nil {
		return makeTombstoneJSON(item.Version)
	}
	if flag, ok := item.Item.(*ldmodel.FeatureFlag); ok {
		if bytes, err := ldmodel.MarshalFeatureFlag(*flag); err == nil {
			return bytes
		}
	}
	return nil
}

func (fk featureFlagStoreDataKind) Deserialize(data []byte) (StoreItemDescriptor, error) {
	flag, err := ldmodel.UnmarshalFeatureFlag(data)
	if err != nil {
		return StoreItemDescriptor{}.NotFound(), err
	}
	if flag.Deleted {
		return StoreItemDescriptor{Version: flag.Version, Item: nil}, nil
	}
	return StoreItemDescriptor{Version: flag.Version, Item: &flag}, nil
}

func (fk featureFlagStoreDataKind) String() string {
	return fk.GetName()
}

type segmentStoreDataKind struct{}

func (sk segmentStoreDataKind) GetName() string {
	return "segments"
}

func (sk segmentStoreDataKind) Serialize(item StoreItemDescriptor) []byte {
	if item.Item == nil {
		return makeTombstoneJSON(item.Version)
	}
	if segment, ok := item.Item.(*ldmodel.Segment); ok {
		if bytes, err := ldmodel.MarshalSegment(*segment); err == nil {
			return bytes
		}
	}
	return nil
}

func (sk segmentStoreDataKind) Deserialize(data []byte) (StoreItemDescriptor, error) {
	segment, err := ldmodel.UnmarshalSegment(data)
	if err != nil {
		return StoreItemDescriptor{}.NotFound(), err
	}
	if segment.Deleted {
		return StoreItemDescriptor{Version: segment.Version, Item: nil}, nil
	}
	return StoreItemDescriptor{Version: segment.Version, Item: &segment}, nil
}

func (sk segmentStoreDataKind) String() string {
	return sk.GetName()
}

func makeTombstoneJSON(version int) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"version": version,
		"deleted": true,
	})
	return data
}

var _ fmt.Stringer = featuresKind
