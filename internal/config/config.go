// Package config holds the JAM protocol constants (§6) as a single bundle,
// with tiny and full presets. Algorithms never branch on preset identity,
// only on the numeric fields here.
package config

import "fmt"

// Config bundles every protocol constant referenced by the substate
// processors and the PVM's standard-program memory image.
type Config struct {
	Validators               uint32 // V
	EpochLength               uint32 // slots per epoch
	Cores                     uint32 // CORES
	RotationPeriod            uint32 // slots
	TicketSubmissionEnds      uint32 // slot offset within epoch
	TicketEntriesPerValidator uint32
	RecentHistorySize         uint32 // bounded deque length (8)
	AuthPoolMax               uint32 // 8
	AuthQueueLen              uint32 // 80
	MaxAgeLookupAnchor        uint32 // 14400 slots
	SlotPeriodSeconds         uint32 // 6
	WorkReportGasLimit        uint64
	TotalGasAllocated         uint64
	ReportedWorkReplacePeriod uint32
}

// Tiny returns the "tiny" test-network preset.
func Tiny() *Config {
	return &Config{
		Validators:                6,
		EpochLength:               12,
		Cores:                     2,
		RotationPeriod:            4,
		TicketSubmissionEnds:      10,
		TicketEntriesPerValidator: 3,
		RecentHistorySize:         8,
		AuthPoolMax:               8,
		AuthQueueLen:              80,
		MaxAgeLookupAnchor:        14400,
		SlotPeriodSeconds:         6,
		WorkReportGasLimit:        10_000_000,
		TotalGasAllocated:         100_000_000,
		ReportedWorkReplacePeriod: 5,
	}
}

// Full returns the production-network preset.
func Full() *Config {
	c := Tiny()
	c.Validators = 1023
	c.EpochLength = 600
	c.Cores = 341
	c.RotationPeriod = 10
	c.TicketSubmissionEnds = 500
	c.TicketEntriesPerValidator = 2
	return c
}

// Validate checks internal consistency of the constant bundle.
func (c *Config) Validate() error {
	if c.Validators == 0 {
		return fmt.Errorf("config: Validators must be > 0")
	}
	if c.Cores == 0 {
		return fmt.Errorf("config: Cores must be > 0")
	}
	if c.EpochLength == 0 {
		return fmt.Errorf("config: EpochLength must be > 0")
	}
	if c.TicketSubmissionEnds > c.EpochLength {
		return fmt.Errorf("config: TicketSubmissionEnds must be <= EpochLength")
	}
	if c.AuthQueueLen == 0 {
		return fmt.Errorf("config: AuthQueueLen must be > 0")
	}
	return nil
}

// SupermajorityThreshold returns floor(2V/3)+1, the vote count required for
// a positive dispute verdict, assurance quorum, and guarantee acceptance.
func (c *Config) SupermajorityThreshold() uint32 {
	return (2*c.Validators)/3 + 1
}

// WonkyThreshold returns floor(V/3), the vote count for a "wonky" verdict.
func (c *Config) WonkyThreshold() uint32 {
	return c.Validators / 3
}

// EpochOf returns the epoch index of the given timeslot.
func (c *Config) EpochOf(slot uint32) uint32 {
	return slot / c.EpochLength
}

// SlotInEpoch returns the offset of slot within its epoch.
func (c *Config) SlotInEpoch(slot uint32) uint32 {
	return slot % c.EpochLength
}
