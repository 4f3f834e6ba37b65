// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip resolves client addresses to ISO country codes with a MaxMind
// GeoLite2-Country database. Without a database only local addresses resolve.
package geoip

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"
)

// Local is returned for loopback and private addresses.
const Local = "LOCAL"

var privateCIDRs = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"fc00::/7",  // IPv6 unique local
	"fe80::/10", // IPv6 link-local
)

func mustParseCIDRs(blocks ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(blocks))
	for _, b := range blocks {
		_, n, err := net.ParseCIDR(b)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Lookup is safe for concurrent use. The zero value resolves local
// addresses only.
type Lookup struct {
	mu      sync.RWMutex
	db      *maxminddb.Reader
	path    string
	modTime time.Time
}

// Open loads the database at path. An empty path gives a Lookup that only
// recognises local addresses.
func Open(path string) (*Lookup, error) {
	l := &Lookup{path: path}
	if path == "" {
		return l, nil
	}
	if err := l.load(); err != nil {
		return l, err
	}
	return l, nil
}

// load opens the database unless the file is unchanged. Caller holds mu.
func (l *Lookup) load() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("geoip database: %w", err)
	}
	if l.db != nil && info.ModTime().Equal(l.modTime) {
		return nil
	}

	db, err := maxminddb.Open(l.path)
	if err != nil {
		return fmt.Errorf("opening geoip database: %w", err)
	}
	if l.db != nil {
		_ = l.db.Close()
	}
	l.db = db
	l.modTime = info.ModTime()
	return nil
}

// Reload picks up a replaced database file.
func (l *Lookup) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.path == "" {
		return nil
	}
	return l.load()
}

// Country returns the ISO code for ip, Local for private ranges, or "" when
// unknown.
func (l *Lookup) Country(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	if parsed.IsLoopback() || isPrivate(parsed) {
		return Local
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return ""
	}
	var rec countryRecord
	if err := l.db.Lookup(parsed, &rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}

// Enabled reports whether a database is loaded.
func (l *Lookup) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.db != nil
}

// Close releases the database.
func (l *Lookup) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func isPrivate(ip net.IP) bool {
	for _, n := range privateCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
