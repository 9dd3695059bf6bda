package internal

import (
	"fmt"
	"sync"
	"time"

	intf "github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldlog"
)

// DataSourceUpdatesImpl receives data from the data source, writes it to the store, and
// turns the results into status updates and flag change events. It is exported because
// other SDK components take the concrete type rather than the interface.
type DataSourceUpdatesImpl struct {
	store                       intf.DataStore
	dataStoreStatusProvider     intf.DataStoreStatusProvider
	dataSourceStatusBroadcaster *DataSourceStatusBroadcaster
	flagChangeEventBroadcaster  *FlagChangeEventBroadcaster
	graph                       *dependencyGraph
	outage                      *outageLog
	loggers                     ldlog.Loggers
	status                      intf.DataSourceStatus
	storeWriteFailed            bool
	lock                        sync.Mutex
}

// NewDataSourceUpdatesImpl creates the internal implementation of DataSourceUpdates.
func NewDataSourceUpdatesImpl(
	store intf.DataStore,
	dataStoreStatusProvider intf.DataStoreStatusProvider,
	dataSourceStatusBroadcaster *DataSourceStatusBroadcaster,
	flagChangeEventBroadcaster *FlagChangeEventBroadcaster,
	logDataSourceOutageAsErrorAfter time.Duration,
	loggers ldlog.Loggers,
) *DataSourceUpdatesImpl {
	return &DataSourceUpdatesImpl{
		store:                       store,
		dataStoreStatusProvider:     dataStoreStatusProvider,
		dataSourceStatusBroadcaster: dataSourceStatusBroadcaster,
		flagChangeEventBroadcaster:  flagChangeEventBroadcaster,
		graph:                       newDependencyGraph(),
		outage:                      newOutageLog(logDataSourceOutageAsErrorAfter, loggers),
		loggers:                     loggers,
		status: intf.DataSourceStatus{
			State:      intf.DataSourceStateInitializing,
			StateSince: time.Now(),
		},
	}
}

// Init replaces the entire data set in the store.
func (d *DataSourceUpdatesImpl) Init(allData []intf.StoreCollection) bool {
	// If anyone is listening for flag changes, snapshot the store first so the old and new
	// data sets can be compared afterward.
	var before map[intf.StoreDataKind]map[string]intf.StoreItemDescriptor
	if d.flagChangeEventBroadcaster.HasListeners() {
		before = make(map[intf.StoreDataKind]map[string]intf.StoreItemDescriptor)
		for _, kind := range intf.AllStoreDataKinds() {
			items, err := d.store.GetAll(kind)
			if err != nil {
				continue
			}
			byKey := make(map[string]intf.StoreItemDescriptor, len(items))
			for _, item := range items {
				byKey[item.Key] = item.Item
			}
			before[kind] = byKey
		}
	}

	if !d.recordStoreResult(d.store.Init(orderForStoreInit(allData))) {
		return false
	}

	// The graph is rebuilt unconditionally: listeners added later must not require
	// re-reading the whole store to discover the dependency edges.
	d.graph.clear()
	for _, coll := range allData {
		for _, item := range coll.Items {
			d.graph.itemChanged(coll.Kind, item.Key, item.Item)
		}
	}

	if before != nil {
		changed := make(itemRefSet)
		for _, kind := range intf.AllStoreDataKinds() {
			d.diffDataSet(changed, kind, before[kind], itemsByKey(allData, kind))
		}
		d.notifyFlagChanges(changed)
	}
	return true
}

// Upsert updates or adds a single item in the store.
func (d *DataSourceUpdatesImpl) Upsert(
	kind intf.StoreDataKind,
	key string,
	item intf.StoreItemDescriptor,
) bool {
	updated, err := d.store.Upsert(kind, key, item)
	ok := d.recordStoreResult(err)

	if updated {
		d.graph.itemChanged(kind, key, item)
		if d.flagChangeEventBroadcaster.HasListeners() {
			affected := make(itemRefSet)
			d.graph.collectDependents(affected, itemRef{kind, key})
			d.notifyFlagChanges(affected)
		}
	}
	return ok
}

// recordStoreResult translates a store write result into data source status. The first
// failure after a run of successes is also logged.
func (d *DataSourceUpdatesImpl) recordStoreResult(err error) bool {
	if err == nil {
		d.lock.Lock()
		d.storeWriteFailed = false
		d.lock.Unlock()
		return true
	}

	d.UpdateStatus(
		intf.DataSourceStateInterrupted,
		intf.DataSourceErrorInfo{
			Kind:    intf.DataSourceErrorKindStoreError,
			Message: err.Error(),
			Time:    time.Now(),
		},
	)

	d.lock.Lock()
	firstFailure := !d.storeWriteFailed
	d.storeWriteFailed = true
	d.lock.Unlock()
	if firstFailure {
		d.loggers.Warnf("Data store returned an error while applying an update from the data source: %s", err)
	}
	return false
}

// UpdateStatus records a change in the data source's status. An interruption before the
// source has ever initialized is still reported as Initializing.
func (d *DataSourceUpdatesImpl) UpdateStatus(
	newState intf.DataSourceState,
	newError intf.DataSourceErrorInfo,
) {
	if newState == "" {
		return
	}
	if status, changed := d.applyStatus(newState, newError); changed {
		d.dataSourceStatusBroadcaster.Broadcast(status)
	}
}

func (d *DataSourceUpdatesImpl) applyStatus(
	newState intf.DataSourceState,
	newError intf.DataSourceErrorInfo,
) (intf.DataSourceStatus, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	previous := d.status
	if newState == intf.DataSourceStateInterrupted && previous.State == intf.DataSourceStateInitializing {
		newState = intf.DataSourceStateInitializing
	}
	if newState == previous.State && newError.Kind == "" {
		return intf.DataSourceStatus{}, false
	}

	next := intf.DataSourceStatus{
		State:      newState,
		StateSince: previous.StateSince,
		LastError:  previous.LastError,
	}
	if newState != previous.State {
		next.StateSince = time.Now()
	}
	if newError.Kind != "" {
		next.LastError = newError
	}
	d.status = next

	d.outage.observe(newState, newError)
	return next, true
}

// GetDataStoreStatusProvider returns the status provider for the store the data source
// writes to.
func (d *DataSourceUpdatesImpl) GetDataStoreStatusProvider() intf.DataStoreStatusProvider {
	return d.dataStoreStatusProvider
}

// GetLastStatus is used internally by SDK components.
func (d *DataSourceUpdatesImpl) GetLastStatus() intf.DataSourceStatus {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.status
}

// waitFor blocks until the data source reaches the desired state, returning false on
// timeout or if the state becomes Off first. A timeout of zero waits indefinitely.
func (d *DataSourceUpdatesImpl) waitFor(desiredState intf.DataSourceState, timeout time.Duration) bool {
	d.lock.Lock()
	switch d.status.State {
	case desiredState:
		d.lock.Unlock()
		return true
	case intf.DataSourceStateOff:
		d.lock.Unlock()
		return false
	}
	statusCh := d.dataSourceStatusBroadcaster.AddListener()
	defer d.dataSourceStatusBroadcaster.RemoveListener(statusCh)
	d.lock.Unlock()

	var deadline <-chan time.Time
	if timeout > 0 {
		deadline = time.After(timeout)
	}
	for {
		select {
		case newStatus := <-statusCh:
			switch newStatus.State {
			case desiredState:
				return true
			case intf.DataSourceStateOff:
				return false
			}
		case <-deadline:
			return false
		}
	}
}

func (d *DataSourceUpdatesImpl) notifyFlagChanges(affected itemRefSet) {
	for ref := range affected {
		if ref.kind == intf.DataKindFeatures() {
			d.flagChangeEventBroadcaster.Broadcast(intf.FlagChangeEvent{Key: ref.key})
		}
	}
}

// diffDataSet adds to the given set every item of the kind that was added, removed, or
// given a higher version, along with everything that depends on it.
func (d *DataSourceUpdatesImpl) diffDataSet(
	out itemRefSet,
	kind intf.StoreDataKind,
	before map[string]intf.StoreItemDescriptor,
	after map[string]intf.StoreItemDescriptor,
) {
	for key, oldItem := range before {
		newItem, stillThere := after[key]
		if !stillThere || oldItem.Version < newItem.Version {
			d.graph.collectDependents(out, itemRef{kind, key})
		}
	}
	for key := range after {
		if _, existed := before[key]; !existed {
			d.graph.collectDependents(out, itemRef{kind, key})
		}
	}
}

func itemsByKey(allData []intf.StoreCollection, kind intf.StoreDataKind) map[string]intf.StoreItemDescriptor {
	for _, coll := range allData {
		if coll.Kind == kind {
			byKey := make(map[string]intf.StoreItemDescriptor, len(coll.Items))
			for _, item := range coll.Items {
				byKey[item.Key] = item.Item
			}
			return byKey
		}
	}
	return nil
}

// outageLog escalates a prolonged data source outage to an error-level log line that
// summarizes every error seen while the outage lasted. A zero timeout disables it.
type outageLog struct {
	logAfter time.Duration
	loggers  ldlog.Loggers
	active   bool
	counts   map[intf.DataSourceErrorInfo]int
	cancel   chan struct{}
	lock     sync.Mutex
}

func newOutageLog(logAfter time.Duration, loggers ldlog.Loggers) *outageLog {
	return &outageLog{
		logAfter: logAfter,
		loggers:  loggers,
	}
}

func (o *outageLog) observe(newState intf.DataSourceState, newError intf.DataSourceErrorInfo) {
	if o.logAfter == 0 {
		return
	}

	o.lock.Lock()
	defer o.lock.Unlock()

	stillOut := newState == intf.DataSourceStateInterrupted || newError.Kind != "" ||
		(newState == intf.DataSourceStateInitializing && o.active)
	if !stillOut {
		if o.cancel != nil {
			close(o.cancel)
			o.cancel = nil
		}
		o.active = false
		return
	}

	if !o.active {
		o.active = true
		o.counts = make(map[intf.DataSourceErrorInfo]int)
		o.cancel = make(chan struct{})
		go o.reportAfterTimeout(o.cancel)
	}
	o.record(newError)
}

func (o *outageLog) record(newError intf.DataSourceErrorInfo) {
	// Keyed by kind and status code only, so the map stays small no matter how long the
	// outage lasts.
	key := intf.DataSourceErrorInfo{Kind: newError.Kind, StatusCode: newError.StatusCode}
	o.counts[key]++
}

func (o *outageLog) reportAfterTimeout(cancel chan struct{}) {
	select {
	case <-cancel:
		return
	case <-time.After(o.logAfter):
	}

	o.lock.Lock()
	if !o.active {
		o.lock.Unlock()
		return
	}
	summary := o.summarize()
	o.cancel = nil
	o.lock.Unlock()

	o.loggers.Errorf(
		"Data source has been unavailable for at least %s, with these errors: %s",
		o.logAfter,
		summary,
	)
}

func (o *outageLog) summarize() string {
	summary := ""
	for err, count := range o.counts {
		if summary != "" {
			summary += ", "
		}
		times := "times"
		if count == 1 {
			times = "time"
		}
		summary += fmt.Sprintf("%s (%d %s)", err, count, times)
	}
	return summary
}
