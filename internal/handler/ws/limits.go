package ws

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/webitel/message-wall/internal/service"
)

// LimitReason describes why an upgrade was refused.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

// StatusCode maps the refusal onto the HTTP answer sent instead of the handshake.
func (r LimitReason) StatusCode() int {
	if r == LimitReasonGlobal {
		return http.StatusServiceUnavailable
	}
	return http.StatusTooManyRequests
}

// ConnectionLimits admits websocket upgrades: a connect rate per address,
// a cap per address and a cap for the whole instance.
type ConnectionLimits struct {
	rate *service.Throttle

	current   atomic.Int64
	globalMax int64

	mu    sync.Mutex
	perIP map[string]int
	ipMax int
}

func NewConnectionLimits(globalMax int64, perIPMax int, rate *service.Throttle) *ConnectionLimits {
	return &ConnectionLimits{
		rate:      rate,
		globalMax: globalMax,
		perIP:     make(map[string]int),
		ipMax:     perIPMax,
	}
}

// Acquire reserves a slot for ip. On success the caller must Release it.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	// rate first, it holds no slot
	if !l.rate.Allow(ip) {
		return false, LimitReasonRate
	}

	for {
		cur := l.current.Load()
		if cur >= l.globalMax {
			return false, LimitReasonGlobal
		}
		if l.current.CompareAndSwap(cur, cur+1) {
			break
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perIP[ip] >= l.ipMax {
		l.current.Add(-1)
		return false, LimitReasonPerIP
	}
	l.perIP[ip]++
	return true, ""
}

func (l *ConnectionLimits) Release(ip string) {
	l.mu.Lock()
	if n := l.perIP[ip]; n > 1 {
		l.perIP[ip] = n - 1
	} else {
		delete(l.perIP, ip)
	}
	l.mu.Unlock()
	l.current.Add(-1)
}

func (l *ConnectionLimits) Current() int64 { return l.current.Load() }

// Count returns the open connections of ip.
func (l *ConnectionLimits) Count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}
