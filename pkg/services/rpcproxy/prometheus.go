package rpcproxy

import (
	"fmt"
	"strings"
	"time"

	"github.com/nspcc-dev/thor-go/pkg/ethrpc"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics used in monitoring service.
var (
	rpcCounter = map[string]prometheus.Counter{}
	rpcTimes   = map[string]prometheus.Histogram{}
)

func addReqTimeMetric(name string, t time.Duration) {
	hist, ok := rpcTimes[name]
	if ok {
		hist.Observe(t.Seconds())
	}
	ctr, ok := rpcCounter[name]
	if ok {
		ctr.Inc()
	}
}

func regCounter(call string) {
	name := strings.ToLower(call)
	ctr := prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      fmt.Sprintf("Number of calls to %s rpc method", call),
			Name:      "rpc_" + name + "_called",
			Namespace: "thorgo",
		},
	)
	prometheus.MustRegister(ctr)
	rpcCounter[call] = ctr
	rpcTimes[call] = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Help:      "RPC " + call + " call handling time",
			Name:      "rpc_" + name + "_time",
			Namespace: "thorgo",
		},
	)
	prometheus.MustRegister(rpcTimes[call])
}

func init() {
	for call := range ethrpc.Methods {
		regCounter(call)
	}
}
