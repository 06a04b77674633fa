package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes storefront counters to CloudWatch under a single namespace.
type Metrics struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetrics returns a Metrics publisher for namespace.
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{
		CloudWatch: client,
		Namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// OrderPlaced records one order and its total.
func (m *Metrics) OrderPlaced(ctx context.Context, total float64) error {
	return m.put(ctx,
		datum("OrdersPlaced", 1, cwtypes.StandardUnitCount, nil),
		datum("OrderTotal", total, cwtypes.StandardUnitNone, nil),
	)
}

// PointsRedeemed records a redemption and the discount it produced.
func (m *Metrics) PointsRedeemed(ctx context.Context, points int, discount float64) error {
	return m.put(ctx,
		datum("PointsRedeemed", float64(points), cwtypes.StandardUnitCount, nil),
		datum("RedeemedDiscount", discount, cwtypes.StandardUnitNone, nil),
	)
}

// TrackingStage records that an order was observed in stage.
func (m *Metrics) TrackingStage(ctx context.Context, stage string) error {
	return m.put(ctx, datum("TrackingStageObserved", 1, cwtypes.StandardUnitCount, map[string]string{"Stage": stage}))
}

func (m *Metrics) put(ctx context.Context, data ...cwtypes.MetricDatum) error {
	now := m.nowFunc()
	for i := range data {
		data[i].Timestamp = &now
	}
	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &m.Namespace,
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}

func datum(name string, value float64, unit cwtypes.StandardUnit, dims map[string]string) cwtypes.MetricDatum {
	d := cwtypes.MetricDatum{
		MetricName: awsString(name),
		Value:      &value,
		Unit:       unit,
	}
	for k, v := range dims {
		d.Dimensions = append(d.Dimensions, cwtypes.Dimension{Name: awsString(k), Value: awsString(v)})
	}
	return d
}
