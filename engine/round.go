package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/simforge/worldsim/core"
	"github.com/simforge/worldsim/oracle"
	"github.com/simforge/worldsim/outcome"
	"github.com/simforge/worldsim/parse"
)

// ProcessRound advances the simulation by exactly one round. A second
// concurrent call for the same simulation fails immediately with
// ErrConcurrentRound; it is never queued. Any failure before the commit
// leaves every component untouched, so the same round can be retried.
func (e *Engine) ProcessRound(ctx context.Context, simID string) (*core.Round, error) {
	rt, err := e.runtime(ctx, simID)
	if err != nil {
		return nil, err
	}
	if !rt.mu.TryLock() {
		return nil, fmt.Errorf("%w: simulation %s", core.ErrConcurrentRound, simID)
	}
	defer rt.mu.Unlock()

	switch rt.sim.Status {
	case core.SimulationEnriched, core.SimulationRunning:
	default:
		return nil, fmt.Errorf("%w: cannot process round in status %s", core.ErrInvalidTransition, rt.sim.Status)
	}

	start := time.Now()
	r := rt.sim.CurrentRound + 1
	log := e.logger.WithSimulation(simID).WithRound(r)

	due := rt.queue.Due(r)
	completions := rt.tracker.DueCompletions(r)
	dueMsgs := rt.mailbox.Due(r)

	var commit *core.RoundCommit
	if len(due) == 0 && len(completions) == 0 && len(dueMsgs) == 0 {
		commit = e.stageQuietRound(rt, r)
	} else {
		commit, err = e.stageRound(ctx, rt, r, due, completions, dueMsgs)
		if err != nil {
			return nil, err
		}
	}

	if err := e.store.CommitRound(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit round %d: %w", r, err)
	}
	e.apply(rt, commit)

	log.LogRound(r, len(due), len(completions), len(dueMsgs), commit.Round.ContinueSimulation, time.Since(start))
	return commit.Round.Clone(), nil
}

// stageQuietRound builds the commit for a round with nothing due: no oracle
// is consulted, actor states carry forward, and the transcript records an
// uneventful step.
func (e *Engine) stageQuietRound(rt *runtime, r int) *core.RoundCommit {
	cont := e.shouldContinue(rt.sim, r, true)
	round := &core.Round{
		RoundNumber:        r,
		WorldSummary:       rt.lastSummary,
		ActionResults:      []core.ActionResult{},
		ContinueSimulation: cont,
		ContinuationReason: "no actions, completions, or messages due",
		Timestamp:          time.Now().UTC(),
	}
	states := make(map[string]*core.ActorState, len(rt.sim.ActiveActorIDs))
	for _, actorID := range rt.sim.ActiveActorIDs {
		s := e.latestState(rt, actorID)
		s.RoundNumber = r
		s.Observations = ""
		s.DirectImpacts = ""
		s.IndirectImpacts = ""
		s.MessagesReceived = nil
		states[actorID] = s
	}
	return &core.RoundCommit{
		SimulationID: rt.sim.ID,
		Round:        round,
		ActorStates:  states,
		Status:       e.nextStatus(cont),
		CurrentRound: r,
	}
}

// stageRound runs the decision and resolution phases and assembles the full
// commit without mutating any runtime component.
func (e *Engine) stageRound(ctx context.Context, rt *runtime, r int, due []*core.ScheduledAction, dueCompletions []*core.ActiveAction, dueMsgs []*core.Message) (*core.RoundCommit, error) {
	delivered := make(map[string][]core.DeliveredMessage)
	deliveredIDs := make([]string, 0, len(dueMsgs))
	allDelivered := make([]core.DeliveredMessage, 0, len(dueMsgs))
	for _, m := range dueMsgs {
		dm := m.Delivered()
		delivered[m.ToActorID] = append(delivered[m.ToActorID], dm)
		allDelivered = append(allDelivered, dm)
		deliveredIDs = append(deliveredIDs, m.ID)
	}

	decisions := e.decisionPhase(ctx, rt, r, delivered)
	newActions, newMessages := e.stageDecisions(rt, r, decisions)

	completing := make(map[string]bool, len(dueCompletions))
	for _, a := range dueCompletions {
		completing[a.ActorID] = true
	}

	var (
		actionUpdates     []*core.ScheduledAction
		activeStarts      []*core.ActiveAction
		activeCompletions []core.ActiveKey
		results           []core.ActionResult
		completionResults []core.ActionResult
	)

	for _, active := range dueCompletions {
		sched, err := rt.queue.Get(active.ActionID)
		if err != nil {
			return nil, fmt.Errorf("completing action %s: %w", active.ActionID, err)
		}
		res := e.resolveOutcome(rt, active.ActorID, active.Action, active.Duration, active.Seed)
		if err := advance(sched, core.ActionCompleted); err != nil {
			return nil, err
		}
		sched.Outcome = res.Outcome
		sched.Quality = res.Quality
		sched.Explanation = res.Explanation
		actionUpdates = append(actionUpdates, sched)
		activeCompletions = append(activeCompletions, core.ActiveKey{ActorID: active.ActorID, StartedRound: active.StartedRound})
		completionResults = append(completionResults, actionResult(active.ActorID, active.Action, active.Seed, res))
	}

	started := make(map[string]bool, len(due))
	for _, a := range due {
		if a.Duration == 1 {
			res := e.resolveOutcome(rt, a.ActorID, a.Action, a.Duration, a.Seed)
			staged := a.Clone()
			if err := advance(staged, core.ActionExecuting); err != nil {
				return nil, err
			}
			if err := advance(staged, core.ActionCompleted); err != nil {
				return nil, err
			}
			staged.Outcome = res.Outcome
			staged.Quality = res.Quality
			staged.Explanation = res.Explanation
			actionUpdates = append(actionUpdates, staged)
			results = append(results, actionResult(a.ActorID, a.Action, a.Seed, res))
			continue
		}
		_, open := rt.tracker.Open(a.ActorID)
		if started[a.ActorID] || (open && !completing[a.ActorID]) {
			staged := a.Clone()
			if err := advance(staged, core.ActionCancelled); err != nil {
				return nil, err
			}
			staged.Explanation = "cancelled: actor is already executing a multi-round action"
			actionUpdates = append(actionUpdates, staged)
			continue
		}
		staged := a.Clone()
		if err := advance(staged, core.ActionExecuting); err != nil {
			return nil, err
		}
		actionUpdates = append(actionUpdates, staged)
		started[a.ActorID] = true
		activeStarts = append(activeStarts, &core.ActiveAction{
			ActorID:        a.ActorID,
			ActionID:       a.ID,
			Action:         a.Action,
			Reasoning:      a.Reasoning,
			StartedRound:   r,
			Duration:       a.Duration,
			CompletesRound: r + a.Duration,
			Seed:           a.Seed,
		})
	}

	update, err := e.callWorld(ctx, rt, r, results, completionResults, allDelivered)
	if err != nil {
		return nil, err
	}

	states := e.buildActorStates(rt, r, update, delivered, actionUpdates, newActions)

	var eliminated []string
	for _, au := range update.ActorUpdates {
		if au.StateChanges.Eliminated && slices.Contains(rt.sim.ActiveActorIDs, au.ActorID) {
			eliminated = append(eliminated, au.ActorID)
		}
	}

	cont := e.shouldContinue(rt.sim, r, update.ContinueSimulation)
	round := &core.Round{
		RoundNumber:          r,
		WorldSummary:         update.WorldStateUpdate.Summary,
		KeyChanges:           update.WorldStateUpdate.KeyChanges,
		EmergentDevelopments: update.WorldStateUpdate.EmergentDevelopments,
		ActionResults:        append(results, completionResults...),
		ContinueSimulation:   cont,
		ContinuationReason:   update.ContinuationReasoning,
		Timestamp:            time.Now().UTC(),
	}

	return &core.RoundCommit{
		SimulationID:        rt.sim.ID,
		Round:               round,
		ActorStates:         states,
		ActionUpdates:       actionUpdates,
		NewActions:          newActions,
		NewMessages:         newMessages,
		ActiveStarts:        activeStarts,
		ActiveCompletions:   activeCompletions,
		DeliveredMessageIDs: deliveredIDs,
		EliminatedActorIDs:  eliminated,
		Status:              e.nextStatus(cont),
		CurrentRound:        r,
	}, nil
}

// decisionPhase fans one decision task out per active actor, bounded by the
// concurrency limit. A failed or unparseable decision degrades to no action
// for that actor; the round never fails on a decision.
func (e *Engine) decisionPhase(ctx context.Context, rt *runtime, r int, delivered map[string][]core.DeliveredMessage) map[string]*parse.Decision {
	sem := make(chan struct{}, e.cfg.MaxConcurrentDecisions)
	var wg sync.WaitGroup
	var mu sync.Mutex
	decisions := make(map[string]*parse.Decision)

	for _, actorID := range rt.sim.ActiveActorIDs {
		actor, ok := rt.sim.ActorByID(actorID)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(actor core.Actor) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			d := e.decideActor(ctx, rt, r, actor, delivered[actor.ID])
			if d == nil {
				return
			}
			mu.Lock()
			decisions[actor.ID] = d
			mu.Unlock()
		}(actor)
	}
	wg.Wait()
	return decisions
}

func (e *Engine) decideActor(ctx context.Context, rt *runtime, r int, actor core.Actor, msgs []core.DeliveredMessage) *parse.Decision {
	state := e.latestState(rt, actor.ID)
	req := oracle.DecisionRequest{
		SimulationID: rt.sim.ID,
		Round:        r,
		Actor:        &actor,
		State:        state,
		WorldSummary: rt.lastSummary,
		Messages:     msgs,
		MaxActions:   e.cfg.MaxActionsPerActor,
		MaxMessages:  e.cfg.MaxMessagesPerActor,
	}
	if open, ok := rt.tracker.Open(actor.ID); ok {
		req.ActiveAction = open
	}

	log := e.logger.WithSimulation(rt.sim.ID).WithRound(r)
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.DecisionTimeout)
		callStart := time.Now()
		raw, err := e.decision.Decide(callCtx, req)
		cancel()
		log.LogOracleCall("decision", actor.ID, time.Since(callStart), attempt, err)
		if err == nil {
			d, perr := parse.DecodeDecision(raw)
			if perr == nil {
				return d
			}
			log.Warn("Discarding unparseable decision for actor %s: %v", actor.ID, perr)
		}
		if ctx.Err() != nil {
			return nil
		}
		if attempt < e.cfg.MaxRetries {
			time.Sleep(e.cfg.RetryBackoff)
		}
	}
	log.Warn("Actor %s takes no action after %d attempts", actor.ID, e.cfg.MaxRetries)
	return nil
}

// stageDecisions validates decision payloads against the per-actor bounds
// and converts them into staged actions and messages. The round's due set is
// already fixed, so anything targeting the current round is pushed to the
// next one.
func (e *Engine) stageDecisions(rt *runtime, r int, decisions map[string]*parse.Decision) ([]*core.ScheduledAction, []*core.Message) {
	activeSet := make(map[string]bool, len(rt.sim.ActiveActorIDs))
	for _, id := range rt.sim.ActiveActorIDs {
		activeSet[id] = true
	}
	log := e.logger.WithSimulation(rt.sim.ID).WithRound(r)

	var newActions []*core.ScheduledAction
	var newMessages []*core.Message
	for _, actorID := range rt.sim.ActiveActorIDs {
		d := decisions[actorID]
		if d == nil {
			continue
		}
		actor, _ := rt.sim.ActorByID(actorID)

		accepted := 0
		for _, da := range d.Actions {
			if accepted >= e.cfg.MaxActionsPerActor {
				break
			}
			if da.Action == "" || len(da.Action) > e.cfg.MaxActionLength || da.Duration < 1 || da.ExecuteRound < r {
				log.Warn("Dropping invalid action request from actor %s", actorID)
				continue
			}
			execRound := da.ExecuteRound
			if execRound == r {
				execRound = r + 1
			}
			newActions = append(newActions, &core.ScheduledAction{
				ID:               core.NewID(),
				SimulationID:     rt.sim.ID,
				ActorID:          actorID,
				Action:           da.Action,
				Reasoning:        da.Reasoning,
				ScheduledRound:   execRound,
				Duration:         da.Duration,
				Seed:             e.seedFn(),
				ScheduledAtRound: r,
				Status:           core.ActionPending,
			})
			accepted++
		}

		sent := 0
		for _, dm := range d.Messages {
			if sent >= e.cfg.MaxMessagesPerActor {
				break
			}
			if dm.Content == "" || len(dm.Content) > e.cfg.MaxMessageLength || dm.ToActorID == actorID || !activeSet[dm.ToActorID] {
				log.Warn("Dropping invalid message request from actor %s", actorID)
				continue
			}
			deliver := dm.DeliverRound
			if deliver <= r {
				deliver = r + 1
			}
			newMessages = append(newMessages, &core.Message{
				ID:             core.NewID(),
				SimulationID:   rt.sim.ID,
				FromActorID:    actorID,
				FromIdentifier: actor.Identifier,
				ToActorID:      dm.ToActorID,
				Content:        dm.Content,
				Reasoning:      dm.Reasoning,
				SentRound:      r,
				DeliverRound:   deliver,
			})
			sent++
		}
	}
	return newActions, newMessages
}

// callWorld consults the world oracle with retries. A deadline hit aborts
// the round with ErrOracleTimeout; the caller's state is untouched, so the
// same round can be retried.
func (e *Engine) callWorld(ctx context.Context, rt *runtime, r int, results, completions []core.ActionResult, delivered []core.DeliveredMessage) (*parse.WorldUpdate, error) {
	req := oracle.ResolutionRequest{
		SimulationID:  rt.sim.ID,
		Round:         r,
		WorldSummary:  rt.lastSummary,
		Scenario:      rt.sim.Question,
		Results:       results,
		Completions:   completions,
		Delivered:     delivered,
		ActorProfiles: actorProfiles(rt.sim),
	}
	log := e.logger.WithSimulation(rt.sim.ID).WithRound(r)

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.ResolutionTimeout)
		callStart := time.Now()
		raw, err := e.world.Resolve(callCtx, req)
		cancel()
		log.LogOracleCall("world", "", time.Since(callStart), attempt, err)
		if err == nil {
			update, perr := parse.DecodeWorldUpdate(raw)
			if perr == nil {
				return update, nil
			}
			err = perr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: world oracle exceeded %s", core.ErrOracleTimeout, e.cfg.ResolutionTimeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if attempt < e.cfg.MaxRetries {
			time.Sleep(e.cfg.RetryBackoff)
		}
	}
	return nil, fmt.Errorf("world oracle failed after %d attempts: %w", e.cfg.MaxRetries, lastErr)
}

// buildActorStates derives each active actor's round-r snapshot from its
// previous snapshot, the world update, the delivered messages, and the
// staged action records.
func (e *Engine) buildActorStates(rt *runtime, r int, update *parse.WorldUpdate, delivered map[string][]core.DeliveredMessage, actionUpdates, newActions []*core.ScheduledAction) map[string]*core.ActorState {
	updatesByActor := make(map[string]parse.ActorUpdate, len(update.ActorUpdates))
	for _, au := range update.ActorUpdates {
		updatesByActor[au.ActorID] = au
	}

	states := make(map[string]*core.ActorState, len(rt.sim.ActiveActorIDs))
	for _, actorID := range rt.sim.ActiveActorIDs {
		s := e.latestState(rt, actorID)
		s.RoundNumber = r
		s.WorldSummary = update.WorldStateUpdate.Summary
		s.MessagesReceived = delivered[actorID]
		s.Observations = ""
		s.DirectImpacts = ""
		s.IndirectImpacts = ""

		if au, ok := updatesByActor[actorID]; ok {
			s.Observations = strings.Join(au.Observations, "\n")
			s.DirectImpacts = strings.Join(au.DirectImpacts, "\n")
			s.IndirectImpacts = strings.Join(au.IndirectImpacts, "\n")
			applyStateChanges(s, au.StateChanges)
		}
		states[actorID] = s
	}

	for _, a := range actionUpdates {
		if s, ok := states[a.ActorID]; ok {
			upsertActionItem(s, a)
		}
	}
	for _, a := range newActions {
		if s, ok := states[a.ActorID]; ok {
			upsertActionItem(s, a)
		}
	}
	return states
}

// apply installs a committed round into the runtime components. The commit
// already persisted, so application is unconditional.
func (e *Engine) apply(rt *runtime, commit *core.RoundCommit) {
	for _, a := range commit.ActionUpdates {
		rt.queue.Put(a)
	}
	for _, a := range commit.NewActions {
		rt.queue.Put(a)
	}
	for _, k := range commit.ActiveCompletions {
		_, _ = rt.tracker.Complete(k.ActorID, k.StartedRound)
	}
	for _, a := range commit.ActiveStarts {
		rt.tracker.Put(a)
	}
	if len(commit.DeliveredMessageIDs) > 0 {
		rt.mailbox.Drain(commit.CurrentRound)
	}
	for _, m := range commit.NewMessages {
		_ = rt.mailbox.Enqueue(m)
	}
	if len(commit.ActorStates) > 0 {
		_ = rt.history.Record(commit.CurrentRound, commit.ActorStates)
	}

	for _, id := range commit.EliminatedActorIDs {
		rt.sim.Eliminate(id)
	}
	rt.sim.Status = commit.Status
	rt.sim.CurrentRound = commit.CurrentRound
	rt.sim.UpdatedAt = time.Now().UTC()
	if commit.Round != nil {
		rt.lastSummary = commit.Round.WorldSummary
	}
}

// latestState returns a mutable copy of the actor's most recent snapshot, or
// an empty base when the actor has none yet.
func (e *Engine) latestState(rt *runtime, actorID string) *core.ActorState {
	if s, ok := rt.history.Latest(actorID); ok {
		return s
	}
	return &core.ActorState{ActorID: actorID, Resources: map[string]any{}}
}

func (e *Engine) resolveOutcome(rt *runtime, actorID, action string, duration int, seed float64) outcome.Result {
	state := e.latestState(rt, actorID)
	return e.policy.Resolve(outcome.Input{
		Action:       action,
		Duration:     duration,
		Capabilities: state.AvailableActions,
		Resources:    state.Resources,
		Constraints:  state.Constraints,
	}, seed)
}

// shouldContinue combines the oracle's verdict with the configured round cap.
func (e *Engine) shouldContinue(sim *core.Simulation, r int, oracleCont bool) bool {
	if sim.Duration > 0 && r >= sim.Duration {
		return false
	}
	return oracleCont
}

func (e *Engine) nextStatus(cont bool) core.SimulationStatus {
	if cont {
		return core.SimulationRunning
	}
	return core.SimulationCompleted
}

// advance moves a staged action record along the status graph. A record that
// cannot legally reach the target status aborts the round instead of being
// overwritten.
func advance(a *core.ScheduledAction, to core.ActionStatus) error {
	if !core.ValidTransition(a.Status, to) {
		return fmt.Errorf("%w: action %s cannot move from %s to %s", core.ErrInvalidTransition, a.ID, a.Status, to)
	}
	a.Status = to
	return nil
}

func actionResult(actorID, action string, seed float64, res outcome.Result) core.ActionResult {
	return core.ActionResult{
		ActorID:     actorID,
		Action:      action,
		Threshold:   res.Threshold,
		Seed:        seed,
		Outcome:     res.Outcome,
		Quality:     res.Quality,
		Explanation: res.Explanation,
	}
}

func actorProfiles(sim *core.Simulation) []*core.Actor {
	profiles := make([]*core.Actor, 0, len(sim.Actors))
	for i := range sim.Actors {
		profiles = append(profiles, &sim.Actors[i])
	}
	return profiles
}

func applyStateChanges(s *core.ActorState, sc parse.StateChanges) {
	for _, a := range sc.EnabledActions {
		if !slices.Contains(s.AvailableActions, a) {
			s.AvailableActions = append(s.AvailableActions, a)
		}
		s.DisabledActions = slices.DeleteFunc(s.DisabledActions, func(d string) bool { return d == a })
	}
	for _, d := range sc.DisabledActions {
		s.AvailableActions = slices.DeleteFunc(s.AvailableActions, func(a string) bool { return a == d })
		if !slices.Contains(s.DisabledActions, d) {
			s.DisabledActions = append(s.DisabledActions, d)
		}
	}
	if len(sc.Resources) > 0 {
		if s.Resources == nil {
			s.Resources = make(map[string]any, len(sc.Resources))
		}
		for k, v := range sc.Resources {
			s.Resources[k] = v
		}
	}
	if len(sc.Constraints) > 0 {
		s.Constraints = sc.Constraints
	}
}

func upsertActionItem(s *core.ActorState, a *core.ScheduledAction) {
	for i := range s.MyActions {
		if s.MyActions[i].ActionID == a.ID {
			s.MyActions[i].Status = a.Status
			s.MyActions[i].Outcome = a.Outcome
			s.MyActions[i].Quality = a.Quality
			s.MyActions[i].Explanation = a.Explanation
			return
		}
	}
	s.MyActions = append(s.MyActions, core.ActorActionItem{
		ActionID:       a.ID,
		Action:         a.Action,
		Reasoning:      a.Reasoning,
		ScheduledRound: a.ScheduledRound,
		Duration:       a.Duration,
		Status:         a.Status,
		Outcome:        a.Outcome,
		Quality:        a.Quality,
		Explanation:    a.Explanation,
		Seed:           a.Seed,
	})
}
