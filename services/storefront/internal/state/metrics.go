package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opSync   = "sync"
	opAdd    = "add"
	opRemove = "remove"
	opUpdate = "update"
	opClear  = "clear"

	resultSuccess  = "success"
	resultFailure  = "failure"
	resultRefetch  = "refetch"
	resultDeferred = "deferred"
)

var (
	cartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Cart synchronization operations by outcome",
		},
		[]string{"operation", "result"},
	)

	cartResponseShapes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_response_shapes_total",
			Help: "Layouts of cart API responses seen by the normalizer",
		},
		[]string{"shape"},
	)
)
