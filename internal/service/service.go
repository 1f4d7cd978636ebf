package service

import (
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/collabhub-backend/internal/auth"
	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/queue"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// paginate clamps page and pageSize and returns the row offset.
func paginate(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

func paginationMeta(page, pageSize, total int) map[string]int {
	totalPages := (total + pageSize - 1) / pageSize
	return map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
}

// requireIdentity rejects anonymous callers before any lookup happens.
func requireIdentity(id *auth.Identity) error {
	if id == nil {
		return appErrors.Unauthenticated()
	}
	return nil
}

// publish emits a committed event. Delivery problems never undo the command.
func publish(q queue.Queue, log *logrus.Entry, ev queue.Event) {
	if q == nil {
		return
	}
	if err := q.Publish(ev.Topic, ev); err != nil {
		log.WithError(err).WithField("topic", ev.Topic).Debug("event not published")
	}
}
