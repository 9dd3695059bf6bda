package internal

import (
	"github.com/flagmill/go-server-sdk/evaluation"
	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldlog"
	"github.com/flagmill/go-server-sdk/ldmodel"
)

// dataStoreEvaluatorDataProvider provides the Evaluator with access to flag and segment data
// in the data store. Store errors are logged and treated as a missing item, since the
// Evaluator has no error reporting channel of its own.
type dataStoreEvaluatorDataProvider struct {
	store   interfaces.DataStore
	loggers ldlog.Loggers
}

// NewDataStoreEvaluatorDataProvider creates the view of the data store that is used during
// flag evaluations.
func NewDataStoreEvaluatorDataProvider(
	store interfaces.DataStore,
	loggers ldlog.Loggers,
) evaluation.DataProvider {
	return dataStoreEvaluatorDataProvider{store, loggers}
}

func (d dataStoreEvaluatorDataProvider) GetFeatureFlag(key string) *ldmodel.FeatureFlag {
	item, err := d.store.Get(interfaces.DataKindFeatures(), key)
	if err != nil || item.Item == nil {
		return nil
	}
	if flag, ok := item.Item.(*ldmodel.FeatureFlag); ok {
		return flag
	}
	d.loggers.Errorf("Unexpected data type (%T) found in store for feature key %q", item.Item, key)
	return nil
}

func (d dataStoreEvaluatorDataProvider) GetSegment(key string) *ldmodel.Segment {
	item, err := d.store.Get(interfaces.DataKindSegments(), key)
	if err != nil || item.Item == nil {
		return nil
	}
	if segment, ok := item.Item.(*ldmodel.Segment); ok {
		return segment
	}
	d.loggers.Errorf("Unexpected data type (%T) found in store for segment key %q", item.Item, key)
	return nil
}
