package registry

import (
	"errors"
	"fmt"

	"github.com/cuemby/cassandra-scheduler/pkg/events"
	"github.com/cuemby/cassandra-scheduler/pkg/metrics"
	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/cuemby/cassandra-scheduler/pkg/types"
	"github.com/samber/lo"
)

// UpdateFromOffer binds the launch parameters of offer to the task with ID
// taskID. An unknown ID is not an error: it returns false and changes
// nothing.
func (r *Registry) UpdateFromOffer(taskID string, offer types.Offer) (task.Task, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ix := r.current.Load()
	name, ok := ix.byID[taskID]
	if !ok {
		metrics.OfferUpdatesTotal.WithLabelValues("unknown").Inc()
		r.logger.Info().
			Str("task_id", taskID).
			Str("offer_id", offer.ID).
			Msg("Received offer for unrecorded task")
		return nil, false, nil
	}

	updated := ix.byName[name].WithOffer(offer)
	if err := r.install("offer", updated); err != nil {
		metrics.OfferUpdatesTotal.WithLabelValues("failed").Inc()
		return nil, false, err
	}
	metrics.OfferUpdatesTotal.WithLabelValues("applied").Inc()
	return updated, true, nil
}

// UpdateFromStatus applies a status report to the task it names. Reports for
// unknown task IDs are logged and dropped. A payload that cannot be decoded
// or is not valid for the task's kind is returned as an error wrapping
// task.ErrMalformedStatus or task.ErrInvalidStatus, and the registry is left
// unchanged.
func (r *Registry) UpdateFromStatus(status types.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ix := r.current.Load()
	name, ok := ix.byID[status.TaskID]
	if !ok {
		metrics.StatusUpdatesTotal.WithLabelValues("unknown").Inc()
		r.logger.Info().
			Str("task_id", status.TaskID).
			Str("state", string(status.State)).
			Int("tasks", len(ix.byName)).
			Msg("Received status update for unrecorded task")
		return nil
	}
	current := ix.byName[name]

	update, err := task.ParseStatus(current.Kind(), status)
	if err != nil {
		outcome := "invalid"
		if errors.Is(err, task.ErrMalformedStatus) {
			outcome = "malformed"
		}
		metrics.StatusUpdatesTotal.WithLabelValues(outcome).Inc()
		r.logger.Warn().Err(err).
			Str("task_name", name).
			Str("task_id", status.TaskID).
			Msg("Rejected status update")
		return fmt.Errorf("status update for %s: %w", name, err)
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = r.now()
	}

	var updated task.Task
	if status.HasData() {
		updated = current.WithStatus(update)
	} else {
		updated = current.WithState(update.State, update.Timestamp)
	}

	if err := r.install("status", updated); err != nil {
		metrics.StatusUpdatesTotal.WithLabelValues("failed").Inc()
		return err
	}
	metrics.StatusUpdatesTotal.WithLabelValues("applied").Inc()

	state := updated.Status().State
	switch {
	case state == types.TaskStateFinished:
		r.publish(events.EventTaskCompleted, updated, status.Message)
	case state.IsTerminal():
		r.publish(events.EventTaskFailed, updated, status.Message)
	}

	r.logger.Info().
		Str("task_name", name).
		Str("task_id", updated.ID()).
		Str("state", string(state)).
		Msg("Updated task")
	return nil
}

// UpdateFromTaskInfo installs the record carried by a launched task's info,
// replacing whatever is held under its name
func (r *Registry) UpdateFromTaskInfo(info types.TaskInfo) error {
	t, err := task.FromTaskInfo(info)
	if err != nil {
		r.logger.Error().Err(err).Str("task_id", info.TaskID).Msg("Failed to parse task info")
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.install("launch", t)
}

// Remove deletes the task called name. Removing an absent name does nothing.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.current.Load().byName[name]; !ok {
		return nil
	}
	return r.uninstall("remove", name)
}

// RemoveByID deletes the task whose current ID is id. Removing an unknown
// ID does nothing.
func (r *Registry) RemoveByID(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.current.Load().byID[id]
	if !ok {
		return nil
	}
	return r.uninstall("remove", name)
}

// RemoveAll deletes every task whose name is in names and stops at the
// first failure
func (r *Registry) RemoveAll(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	present := lo.Filter(lo.Uniq(names), func(name string, _ int) bool {
		_, ok := r.current.Load().byName[name]
		return ok
	})
	for _, name := range present {
		if err := r.uninstall("remove", name); err != nil {
			return err
		}
	}
	return nil
}
