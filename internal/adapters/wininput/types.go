package wininput

import "time"

type RuntimeConfig struct {
	TriggerCodes    map[uint16]struct{}
	GestureInterval time.Duration
	SettleDelay     time.Duration
	StartEnabled    bool
}

type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
}
