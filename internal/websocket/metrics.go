package websocket

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sgi_inbox_ws_connections",
		Help: "Agents currently connected to the notification feed.",
	})
	wsRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sgi_inbox_ws_rooms",
		Help: "Notification rooms with at least one connected agent.",
	})
	// outcome is delivered or dropped; a drop disconnects a slow client
	wsDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sgi_inbox_ws_deliveries_total",
		Help: "Inbox events handed to websocket clients, by outcome.",
	}, []string{"outcome"})
	wsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sgi_inbox_ws_published_total",
		Help: "Inbox events published to Redis, by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(wsConnections, wsRooms, wsDeliveries, wsPublished)
}

func connectionOpened() { wsConnections.Inc() }

func connectionClosed() { wsConnections.Dec() }

func setRooms(count int) {
	wsRooms.Set(float64(count))
}

func countDeliveries(delivered, dropped int) {
	if delivered > 0 {
		wsDeliveries.WithLabelValues("delivered").Add(float64(delivered))
	}
	if dropped > 0 {
		wsDeliveries.WithLabelValues("dropped").Add(float64(dropped))
	}
}

func countPublish(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	wsPublished.WithLabelValues(result).Inc()
}
