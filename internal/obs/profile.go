package obs

import (
	"github.com/grafana/pyroscope-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// ProfileConfig enables continuous profiling against a pyroscope server.
type ProfileConfig struct {
	ServerAddress   string            `yaml:"serverAddress"`
	ApplicationName string            `yaml:"applicationName"`
	Tags            map[string]string `yaml:"tags"`
}

// Enabled reports whether a server address is configured.
func (c ProfileConfig) Enabled() bool {
	return c.ServerAddress != ""
}

// StartProfiler starts pyroscope when cfg is enabled. The returned stop
// func is always safe to call.
func StartProfiler(cfg ProfileConfig) (func(), error) {
	if !cfg.Enabled() {
		return func() {}, nil
	}
	name := cfg.ApplicationName
	if name == "" {
		name = "tradebook"
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: name,
		ServerAddress:   cfg.ServerAddress,
		Tags:            cfg.Tags,
		Logger:          profileLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return func() {}, errors.Wrap(err, "start pyroscope").With("server", cfg.ServerAddress)
	}
	return func() {
		_ = profiler.Stop()
	}, nil
}

// profileLogger routes pyroscope output through logs, dropping debug lines.
type profileLogger struct{}

func (profileLogger) Infof(format string, args ...interface{}) {
	logs.Infof("pyroscope: "+format, args...)
}

func (profileLogger) Debugf(_ string, _ ...interface{}) {}

func (profileLogger) Errorf(format string, args ...interface{}) {
	logs.Errorf("pyroscope: "+format, args...)
}
