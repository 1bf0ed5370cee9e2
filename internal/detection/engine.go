// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package detection

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/sharewarden/internal/logging"
	"github.com/tomtom215/sharewarden/internal/metrics"
	"github.com/tomtom215/sharewarden/internal/models"
)

// State is the mutable detection state carried between cycles.
type State struct {
	History *History
	Bans    *BanLedger
}

// NewState returns a state with empty history and the given bans.
func NewState(bans map[string]int64) *State {
	return &State{
		History: NewHistory(),
		Bans:    NewBanLedger(bans),
	}
}

// Engine applies a Policy to session snapshots.
type Engine struct {
	policy    Policy
	whitelist map[string]struct{}
}

// NewEngine creates an engine for policy.
func NewEngine(policy Policy) *Engine {
	if policy.BanMessage == nil {
		policy.BanMessage = DefaultPolicy().BanMessage
	}
	whitelist := make(map[string]struct{}, len(policy.UsernameWhitelist))
	for _, u := range policy.UsernameWhitelist {
		whitelist[strings.ToLower(u)] = struct{}{}
	}
	return &Engine{policy: policy, whitelist: whitelist}
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// IsWhitelisted reports whether username bypasses all checks.
func (e *Engine) IsWhitelisted(username string) bool {
	_, ok := e.whitelist[strings.ToLower(username)]
	return ok
}

// RunCycle evaluates one snapshot and returns the actions to perform, in
// order. Users are processed in sorted order. For each user:
//
//  1. Whitelisted users are skipped and no history is recorded.
//  2. A user with a valid ban has all sessions killed and nothing else is
//     evaluated. An expired ban is lifted and evaluation continues.
//  3. With history enabled, current locations are recorded, all histories
//     are pruned, and exceeding the distinct-address limit bans the user.
//     The concurrent rule is then skipped.
//  4. Exceeding the concurrent distinct-location limit bans the user.
//
// Every ledger change is followed by a PersistBans action.
func (e *Engine) RunCycle(state *State, snapshot models.UserSnapshot, now time.Time) []Action {
	nowUnix := now.Unix()
	users := make([]string, 0, len(snapshot))
	for u := range snapshot {
		users = append(users, u)
	}
	slices.Sort(users)

	var actions []Action
	for _, user := range users {
		actions = e.evaluateUser(state, user, snapshot[user], nowUnix, actions)
	}

	metrics.ActiveBans.Set(float64(state.Bans.Len()))
	metrics.HistoryUsers.Set(float64(state.History.Users()))
	return actions
}

func (e *Engine) evaluateUser(state *State, user string, sessions []models.StreamSession, now int64, actions []Action) []Action {
	if e.IsWhitelisted(user) {
		logging.Debug().Str("username", user).Msg("User is whitelisted, not counting streams")
		return actions
	}

	if state.Bans.Has(user) {
		valid, _ := state.Bans.IsValid(user, now)
		if valid {
			logging.Info().Str("username", user).Int("sessions", len(sessions)).Msg("Killing all streams for banned user")
			metrics.BannedStreamsBlocked.Inc()
			return append(actions,
				KillSessions{Username: user, Sessions: sessions, Message: e.banMessage(state, user, now)},
				Notify{Text: fmt.Sprintf("Prevented banned user %s from streaming", user)},
			)
		}

		_ = state.Bans.Lift(user)
		logging.Info().Str("username", user).Msg("Removed user from ban list, ban has expired")
		metrics.BansLifted.Inc()
		actions = append(actions,
			PersistBans{Bans: state.Bans.Snapshot()},
			Notify{Text: fmt.Sprintf("Removed %s from ban list", user)},
		)
	}

	locations := DistinctLocations(sessions, e.policy.NetworkWhitelist)

	if e.policy.HistoryEnabled {
		state.History.Record(user, locations, now)
		state.History.Prune(e.policy.HistoryWindowHours, now)

		count := state.History.DistinctCount(user)
		if count > e.policy.HistoryMaxUniqueIPs {
			e.logHistoryTrail(state, user)
			reason := fmt.Sprintf("Banned %s for %d hours for streaming from %d unique IP addresses over the previous %d hours",
				user, e.policy.BanDurationHours, count, e.policy.HistoryWindowHours)
			return e.ban(state, user, sessions, RuleTypeIPHistory, reason, now, actions)
		}
	}

	if len(locations) > e.policy.MaxUniqueStreams {
		logSessions(user, sessions)
		reason := fmt.Sprintf("Banned %s for %d hours for streaming from %d unique locations",
			user, e.policy.BanDurationHours, len(locations))
		return e.ban(state, user, sessions, RuleTypeConcurrentStreams, reason, now, actions)
	}

	return actions
}

func (e *Engine) ban(state *State, user string, sessions []models.StreamSession, rule RuleType, reason string, now int64, actions []Action) []Action {
	expiry := state.Bans.Issue(user, e.policy.BanDurationHours, now)
	metrics.BansIssued.WithLabelValues(string(rule)).Inc()

	logging.Info().
		Str("username", user).
		Str("rule", string(rule)).
		Int("ban_hours", e.policy.BanDurationHours).
		Time("expires_at", time.Unix(expiry, 0)).
		Msg("Banning user")

	return append(actions,
		PersistBans{Bans: state.Bans.Snapshot()},
		KillSessions{Username: user, Sessions: sessions, Message: e.banMessage(state, user, now)},
		Notify{Text: reason},
	)
}

// banMessage renders the termination reason. A template that fails to
// execute falls back to a fixed message so the user still sees the ban.
func (e *Engine) banMessage(state *State, user string, now int64) string {
	remaining, err := state.Bans.RemainingHuman(user, now)
	if err != nil {
		remaining = FormatRemaining(0)
	}
	data := map[string]any{
		"Username":  user,
		"Remaining": remaining,
		"Hours":     e.policy.BanDurationHours,
	}

	var sb strings.Builder
	if err := e.policy.BanMessage.Execute(&sb, data); err != nil {
		logging.Warn().Err(err).Str("username", user).Msg("Ban message template failed, using fallback")
		return "You have been banned from streaming. Your ban will be lifted in " + remaining + "."
	}
	return sb.String()
}

func (e *Engine) logHistoryTrail(state *State, user string) {
	if !logging.DebugEnabled() {
		return
	}
	trail := state.History.DedupLog(user)
	addrs := make([]string, 0, len(trail))
	for _, entry := range trail {
		addrs = append(addrs, time.Unix(entry.Timestamp, 0).UTC().Format(time.RFC3339)+" "+entry.Address.String())
	}
	logging.Debug().Str("username", user).Strs("ip_history", addrs).Msg("Address history for user")
}

func logSessions(user string, sessions []models.StreamSession) {
	for i := range sessions {
		s := &sessions[i]
		logging.Info().
			Str("username", user).
			Int("stream", i).
			Str("device", s.Device).
			Str("ip_address", addrString(s.IPAddress)).
			Str("title", s.Title).
			Msg("Offending stream")
	}
}

func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.String()
}
