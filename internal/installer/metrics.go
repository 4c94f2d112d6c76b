package installer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the executor's prometheus instruments.
type Metrics struct {
	tasksExecuted *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
}

// NewMetrics creates and registers the installer metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tasksExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hotswap",
			Name:      "tasks_executed_total",
			Help:      "Installer tasks executed, by task type and outcome.",
		}, []string{"type", "outcome"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hotswap",
			Name:      "task_duration_seconds",
			Help:      "Wall time per installer task, by task type.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"type"}),
	}
	reg.MustRegister(m.tasksExecuted, m.taskDuration)
	return m
}

func (m *Metrics) observe(taskType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.tasksExecuted.WithLabelValues(taskType, outcome).Inc()
	m.taskDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
}

// taskType maps a task to its metric label. Total over the closed task
// set; unknown implementations fall back to a generic label.
func taskType(t Task) string {
	switch t.(type) {
	case *InstallTask:
		return "install"
	case *StartTask:
		return "start"
	case *StopTask:
		return "stop"
	case *UpdateTask:
		return "update"
	case *UninstallTask:
		return "uninstall"
	case *RefreshTask:
		return "refresh"
	default:
		return "task"
	}
}
