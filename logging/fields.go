package logging

import "go.uber.org/zap"

func Component(name string) zap.Field { return zap.String("component", name) }

func UID(uid string) zap.Field { return zap.String("uid", uid) }

func Factor(name string) zap.Field { return zap.String("factor", name) }

func Service(name string) zap.Field { return zap.String("service", name) }

func Outcome(name string) zap.Field { return zap.String("outcome", name) }

func Op(name string) zap.Field { return zap.String("op", name) }

func Err(err error) zap.Field { return zap.Error(err) }

// Recipient logs only the domain part of an email address.
func Recipient(addr string) zap.Field {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == '@' {
			return zap.String("recipient_domain", addr[i+1:])
		}
	}
	return zap.String("recipient_domain", "")
}
