package sandbox

import (
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

func (p *Page) setupConsole() {
	console := p.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		console.Set(level, p.makeConsoleFunc(level))
	}
	p.vm.Set("console", console)
}

func (p *Page) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		p.logConsole(level, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

func (p *Page) logConsole(level, msg string) {
	p.consoleMu.Lock()
	p.console = append(p.console, LogEntry{
		Level:   level,
		Message: msg,
		Time:    time.Now(),
	})
	p.consoleMu.Unlock()
	log.Debug().Int64("page_id", p.id).Str("level", level).Msg(msg)
}

// Console returns a copy of everything the page logged so far
func (p *Page) Console() []LogEntry {
	p.consoleMu.Lock()
	defer p.consoleMu.Unlock()
	return append([]LogEntry{}, p.console...)
}
