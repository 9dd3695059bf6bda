package ldclient

import (
	"time"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/internal"
	"github.com/flagmill/go-server-sdk/ldcomponents"
	"github.com/flagmill/go-server-sdk/ldevents"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

func createDiagnosticsManager(
	sdkKey string,
	config Config,
	waitFor time.Duration,
) *ldevents.DiagnosticsManager {
	id := ldevents.NewDiagnosticID(sdkKey)
	return ldevents.NewDiagnosticsManager(
		id,
		makeDiagnosticConfigData(config, waitFor),
		makeDiagnosticSDKData(),
		time.Now(),
		nil,
	)
}

func makeDiagnosticConfigData(config Config, waitFor time.Duration) ldvalue.Value {
	builder := ldvalue.ObjectBuild().
		Set("startWaitMillis", durationToMillis(waitFor))

	// Allow each pluggable component to describe its own relevant properties.
	mergeComponentProperties(builder, config.HTTP, ldcomponents.HTTPConfiguration(), "")
	mergeComponentProperties(builder, config.DataStore, ldcomponents.InMemoryDataStore(), "dataStoreType")
	mergeComponentProperties(builder, config.DataSource, ldcomponents.StreamingDataSource(), "")
	mergeComponentProperties(builder, config.Events, ldcomponents.SendEvents(), "")
	return builder.Build()
}

// Attempts to add relevant configuration properties, if any, from a customizable component:
//   - If the component does not implement DiagnosticDescription, set the defaultPropertyName
//     property to "custom".
//   - If it does implement DiagnosticDescription and provides a JSON object, copy all of its
//     properties.
//   - If it provides a string, use that as the value of the defaultPropertyName property.
func mergeComponentProperties(
	builder ldvalue.ObjectBuilder,
	component interface{},
	defaultComponent interface{},
	defaultPropertyName string,
) {
	if component == nil {
		component = defaultComponent
	}
	var componentDesc ldvalue.Value
	if dd, ok := component.(interfaces.DiagnosticDescription); ok {
		componentDesc = dd.DescribeConfiguration()
	}
	if componentDesc.Type() == ldvalue.ObjectType {
		for _, name := range componentDesc.Keys() {
			builder.Set(name, componentDesc.GetByKey(name))
		}
	} else if defaultPropertyName != "" {
		if componentDesc.Type() == ldvalue.StringType {
			builder.Set(defaultPropertyName, componentDesc)
		} else {
			builder.Set(defaultPropertyName, ldvalue.String("custom"))
		}
	}
}

func makeDiagnosticSDKData() ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("name", ldvalue.String("go-server-sdk")).
		Set("version", ldvalue.String(internal.SDKVersion)).
		Build()
}

func durationToMillis(d time.Duration) ldvalue.Value {
	return ldvalue.Float64(float64(uint64(d / time.Millisecond)))
}
