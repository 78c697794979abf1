// Package registry holds every tool together with the resources tools share: the
// logger, the TTL cache and the history recorder. Tools register themselves from
// init; DISABLED_TOOLS and ENABLE_ADDITIONAL_TOOLS decide which of them are served.
package registry

import (
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/devtoolshub/devtools-hub/internal/history"
	"github.com/devtoolshub/devtools-hub/internal/tools"
	"github.com/sirupsen/logrus"
)

// DefaultCacheTTL applies until SetCache installs a configured cache
const DefaultCacheTTL = 10 * time.Minute

// optInTools are only served when ENABLE_ADDITIONAL_TOOLS names them
var optInTools = []string{"conversion-history"}

var (
	mu            sync.RWMutex
	toolRegistry  = map[string]tools.Tool{}
	disabledTools = map[string]bool{}

	logger      *logrus.Logger
	sharedCache *cache.Cache
	recorder    *history.Recorder
)

// Init resets the shared resources and re-reads DISABLED_TOOLS. Registered tools are kept.
func Init(l *logrus.Logger) {
	mu.Lock()
	logger = l
	sharedCache = cache.NewCache(DefaultCacheTTL)
	recorder = nil
	mu.Unlock()

	parseDisabledTools()
}

func parseDisabledTools() {
	disabled := nameSet(os.Getenv("DISABLED_TOOLS"))

	mu.Lock()
	defer mu.Unlock()
	disabledTools = disabled
	if logger != nil && len(disabled) > 0 {
		logger.WithField("count", len(disabled)).Debug("Tools disabled by DISABLED_TOOLS")
	}
}

// nameSet splits a comma separated list into normalised tool names
func nameSet(list string) map[string]bool {
	set := map[string]bool{}
	for _, name := range strings.Split(list, ",") {
		if name = normaliseToolName(name); name != "" {
			set[name] = true
		}
	}
	return set
}

// normaliseToolName makes "Morse_Code" and "morse-code" the same name
func normaliseToolName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

// servedLocked applies the gating rules; the caller holds mu. ENABLE_ADDITIONAL_TOOLS
// is read on every call so it can change at runtime.
func servedLocked(name string) bool {
	key := normaliseToolName(name)
	if disabledTools[key] {
		return false
	}
	if !slices.Contains(optInTools, key) {
		return true
	}
	optIn := os.Getenv("ENABLE_ADDITIONAL_TOOLS")
	return strings.EqualFold(strings.TrimSpace(optIn), "all") || nameSet(optIn)[key]
}

// ShouldRegisterTool reports whether the named tool is served. DISABLED_TOOLS wins
// over ENABLE_ADDITIONAL_TOOLS.
func ShouldRegisterTool(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	served := servedLocked(name)
	if logger != nil {
		logger.WithFields(logrus.Fields{"tool": name, "served": served}).Debug("Checked tool gating")
	}
	return served
}

// Register stores a tool under its definition name. Gating is applied when tools are
// looked up, not here, because init runs before configuration is loaded.
func Register(tool tools.Tool) {
	name := tool.Definition().Name

	mu.Lock()
	defer mu.Unlock()
	toolRegistry[name] = tool
	if logger != nil {
		logger.WithField("tool", name).Debug("Tool registered")
	}
}

// GetTool returns a served tool
func GetTool(name string) (tools.Tool, bool) {
	mu.RLock()
	defer mu.RUnlock()
	tool, ok := toolRegistry[name]
	if !ok || !servedLocked(name) {
		return nil, false
	}
	return tool, true
}

// GetEnabledTools returns every served tool by name
func GetEnabledTools() map[string]tools.Tool {
	mu.RLock()
	defer mu.RUnlock()
	served := make(map[string]tools.Tool, len(toolRegistry))
	for name, tool := range toolRegistry {
		if servedLocked(name) {
			served[name] = tool
		}
	}
	return served
}

func GetEnabledToolNames() []string {
	names := make([]string, 0)
	for name := range GetEnabledTools() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GetToolNamesWithExtendedHelp lists the served tools that implement
// tools.ExtendedHelpProvider, sorted
func GetToolNamesWithExtendedHelp() []string {
	var names []string
	for name, tool := range GetEnabledTools() {
		if _, ok := tool.(tools.ExtendedHelpProvider); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func GetLogger() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func GetCache() *cache.Cache {
	mu.RLock()
	defer mu.RUnlock()
	return sharedCache
}

// SetCache replaces the shared cache, typically with one using the configured TTL
func SetCache(c *cache.Cache) {
	mu.Lock()
	defer mu.Unlock()
	sharedCache = c
}

// SetRecorder installs the history recorder; nil turns recording off
func SetRecorder(r *history.Recorder) {
	mu.Lock()
	defer mu.Unlock()
	recorder = r
}

// GetRecorder returns the history recorder, or nil when history is off
func GetRecorder() *history.Recorder {
	mu.RLock()
	defer mu.RUnlock()
	return recorder
}
