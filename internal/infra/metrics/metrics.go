package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commands = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "budget_workflow_commands_total",
	Help: "Workflow command outcomes by command name and result.",
}, []string{"command", "result"})

// Command фиксирует исход одной команды рабочего процесса.
func Command(name string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	commands.WithLabelValues(name, result).Inc()
}
