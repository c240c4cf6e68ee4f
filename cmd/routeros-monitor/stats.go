package main

import (
	"fmt"
	"log"
	"strconv"
	"time"

	routeros "github.com/netwire-go/routeros"
)

// InterfaceStats represents interface traffic statistics
type InterfaceStats struct {
	Name   string
	RxByte uint64
	TxByte uint64
}

// InterfaceRate stores previous statistics for rate calculation, plus a
// ring buffer of recent rate samples used to derive the windowed average
// and peak Monitor reports alongside the instantaneous rate.
type InterfaceRate struct {
	Name         string
	LastRxByte   uint64
	LastTxByte   uint64
	LastTime     time.Time
	RxHistory    []float64
	TxHistory    []float64
	HistoryIndex int
	HistoryCount int
}

// GetInterfaceStats queries the router for interface statistics, filtering
// server-side so only the requested interfaces' rx-byte/tx-byte counters
// cross the wire.
//
//	=stats               : live counters, not the cached config snapshot
//	=.proplist=          : only fetch name, rx-byte, tx-byte
//	?name=iface ... ?#|  : OR the per-interface filters together
//
// RunCommand's map-of-params shape can't repeat the "?name=" query key for
// multiple interfaces, so the request sentence is built as a raw word list
// via RunCommandWords instead.
func GetInterfaceStats(client *routeros.Client, interfaces []string, debug bool) ([]InterfaceStats, error) {
	words := []string{
		"/interface/print",
		"=stats",
		"=.proplist=name,rx-byte,tx-byte",
	}
	for i, iface := range interfaces {
		words = append(words, "?name="+iface)
		if i >= 1 {
			words = append(words, "?#|")
		}
	}

	if debug {
		log.Printf("DEBUG: /interface/print words: %v", words)
	}

	reply, err := client.RunCommandWords(words)
	if err != nil {
		return nil, fmt.Errorf("interface/print failed: %w", err)
	}

	var stats []InterfaceStats
	for _, rec := range reply.Records {
		name := rec["name"]
		if name == "" {
			continue
		}

		rxByte, err := strconv.ParseUint(rec["rx-byte"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rx-byte for %s: %w", name, err)
		}

		txByte, err := strconv.ParseUint(rec["tx-byte"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tx-byte for %s: %w", name, err)
		}

		stats = append(stats, InterfaceStats{Name: name, RxByte: rxByte, TxByte: txByte})
	}

	return stats, nil
}

// FormatBytes converts bytes to human-readable format (auto scale)
func FormatBytes(bytes float64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%.2f B/s", bytes)
	}
	div, exp := float64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB/s", bytes/div, "KMGTPE"[exp])
}

// FormatRate formats rate according to configuration
func FormatRate(bytesPerSec float64, rateUnit string, rateScale string) string {
	var value float64
	var unit string

	if rateUnit == "bps" {
		value = bytesPerSec * 8
		unit = "bps"
	} else {
		value = bytesPerSec
		unit = "B/s"
	}

	switch rateScale {
	case "k":
		return fmt.Sprintf("%7.2f %c%s", value/1000, 'k', unit)
	case "M":
		return fmt.Sprintf("%7.2f %c%s", value/1000000, 'M', unit)
	case "G":
		return fmt.Sprintf("%7.2f %c%s", value/1000000000, 'G', unit)
	case "auto":
		switch {
		case value < 1000:
			return fmt.Sprintf("%7.2f %s", value, unit)
		case value < 1000000:
			return fmt.Sprintf("%7.2f %c%s", value/1000, 'k', unit)
		case value < 1000000000:
			return fmt.Sprintf("%7.2f %c%s", value/1000000, 'M', unit)
		default:
			return fmt.Sprintf("%7.2f %c%s", value/1000000000, 'G', unit)
		}
	default:
		return fmt.Sprintf("%.2f %s", value, unit)
	}
}
