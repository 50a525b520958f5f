package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const otpLimiterPrefix = "voyager:otp:window:"

// Ventana fija por email: la primera solicitud crea el contador y arranca
// la ventana en milisegundos, las siguientes solo incrementan.
const otpWindowScript = `
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return hits
`

// otpScriptRunner es el subconjunto de go-redis que usa el limiter.
type otpScriptRunner interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// redisOTPRateLimiter comparte el presupuesto de envios de OTP entre todas
// las instancias del API.
type redisOTPRateLimiter struct {
	runner otpScriptRunner
	window time.Duration
	max    int
}

// NewRedisOTPRateLimiter crea un limiter respaldado en Redis; la ventana y
// el maximo vienen de la configuracion del servicio.
func NewRedisOTPRateLimiter(client *redis.Client, window time.Duration, max int) OTPRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = otpTTL
	}
	if max <= 0 {
		max = 1
	}
	return &redisOTPRateLimiter{
		runner: client,
		window: window,
		max:    max,
	}
}

// Allow consume un intento para el email dado. Si Redis falla se permite el
// envio: el limiter protege el correo saliente, no la cuenta.
func (l *redisOTPRateLimiter) Allow(emailAddr string) bool {
	if l == nil || l.runner == nil {
		return true
	}
	bucket := normalizeEmail(emailAddr)
	if bucket == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	hits, err := l.runner.Eval(ctx, otpWindowScript, []string{otpLimiterPrefix + bucket}, l.window.Milliseconds()).Int()
	if err != nil {
		return true
	}
	return hits <= l.max
}
