//go:build integration

package main_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

// TestOptimizationPlan_ResolvesRoutes verifies that a plan published to
// optimization.events is routed van by van, recorded in route_runs, and
// announced on route.events, with the unreachable van falling back.
func TestOptimizationPlan_ResolvesRoutes(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	unreachable := route.Waypoint{Lat: -33.6, Lng: -70.9}
	stack := setupRoutingStack(t, infra.DB, infra.KafkaBrokers, scriptedProvider{
		unreachable: map[route.Waypoint]bool{unreachable: true},
	})
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	// Start the consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	plan := route.OptimizationPlanCompletedEvent{
		PlanID: "plan-int-1",
		Vans: []route.VanRouteRequest{
			{VanID: "van-a", Waypoints: []route.Waypoint{{Lat: -33.4372, Lng: -70.6506}, {Lat: -33.4263, Lng: -70.6171}, {Lat: -33.51, Lng: -70.7572}}},
			{VanID: "van-b", Waypoints: []route.Waypoint{unreachable, {Lat: -33.45, Lng: -70.66}}},
			{VanID: "van-c", Waypoints: []route.Waypoint{{Lat: -33.5227, Lng: -70.5986}}},
		},
	}
	publishTestEvent(t, infra.KafkaBrokers, route.TopicOptimizationEvents,
		"service-optimization", route.OptimizationPlanCompleted, plan)

	// Assert: two runs recorded, the single-stop van skipped.
	runs := waitForRuns(t, infra.DB, "kafka:plan-int-1", 2, 20*time.Second)
	assert.Equal(t, "van-a", runs[0].VanID)
	assert.Equal(t, "ok", runs[0].Status)
	assert.Equal(t, 3, runs[0].PointCount)
	assert.Equal(t, "66jc", runs[0].OriginCell[:4])
	assert.Equal(t, "van-b", runs[1].VanID)
	assert.Equal(t, "fallback", runs[1].Status)
	assert.Contains(t, runs[1].ErrorDetail, "ZERO_RESULTS")
	assert.Equal(t, runs[0].BatchID, runs[1].BatchID)

	// Assert: RouteBatchResolvedEvent on route.events.
	ce := consumeOneEvent(t, infra.KafkaBrokers, route.TopicRouteEvents,
		route.RouteBatchResolved, 15*time.Second)

	var resolved route.RouteBatchResolvedEvent
	require.NoError(t, ce.ParseData(&resolved))
	assert.Equal(t, runs[0].BatchID, resolved.BatchID)
	assert.Equal(t, "kafka:plan-int-1", resolved.Source)
	assert.Equal(t, 1, resolved.OK)
	assert.Equal(t, 1, resolved.Fallback)
	require.Len(t, resolved.Vans, 2)
}

// TestRouteRuns_AdminQueries verifies the repository-backed admin queries.
func TestRouteRuns_AdminQueries(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupRoutingStack(t, infra.DB, infra.KafkaBrokers, scriptedProvider{})
	defer stack.CleanupProducer()

	longVanID := strings.Repeat("van", 100)
	batch := stack.Service.ResolveBatch(context.Background(), "api", []route.VanRouteRequest{
		{VanID: "v1", Waypoints: []route.Waypoint{{Lat: -33.44, Lng: -70.65}, {Lat: -33.43, Lng: -70.62}}},
		{VanID: "v2", Waypoints: []route.Waypoint{{Lat: 95, Lng: 0}, {Lat: -33.43, Lng: -70.62}}},
		{VanID: longVanID, Waypoints: []route.Waypoint{{Lat: -33.45, Lng: -70.66}, {Lat: -33.43, Lng: -70.62}}},
	})
	assert.Equal(t, 2, batch.OK)
	assert.Equal(t, 1, batch.Error)

	stats, err := stack.Service.GetRouteStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus["ok"])
	assert.Equal(t, int64(1), stats.ByStatus["error"])

	runs, total, err := stack.Service.ListRouteRuns(context.Background(), "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, runs, 3)

	errored, total, err := stack.Service.ListRouteRuns(context.Background(), route.StatusError, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, errored, 1)
	assert.Equal(t, "v2", errored[0].VanID)
}
