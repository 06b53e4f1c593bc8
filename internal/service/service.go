package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/app/internal/domain"
	"storefront/app/internal/domain/task"
	"storefront/app/internal/metrics"
	"storefront/app/internal/queue"
	"storefront/app/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Service moves confirmed orders from the checkout into Postgres through the
// order streams.
type Service struct {
	repository  repository.OrderRepository
	queue       queue.Queue
	metrics     *metrics.Metrics
	groupName   string
	minIdleTime time.Duration
	now         func() time.Time
}

func NewService(
	repository repository.OrderRepository,
	queue queue.Queue,
	metrics *metrics.Metrics,
	groupName string,
	minIdleTime int,
) *Service {
	return &Service{
		repository:  repository,
		queue:       queue,
		metrics:     metrics,
		groupName:   groupName,
		minIdleTime: time.Duration(minIdleTime) * time.Second,
		now:         time.Now,
	}
}

// ConfirmOrder stamps the order and enqueues it for persistence. It returns
// the order id.
func (s *Service) ConfirmOrder(ctx context.Context, order domain.Order) (string, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.ConfirmedAt.IsZero() {
		order.ConfirmedAt = s.now().UTC()
	}

	if _, err := s.queue.AddTask(ctx, &task.OrderTask{Order: order}); err != nil {
		return "", fmt.Errorf("failed to enqueue order %s: %w", order.ID, err)
	}

	log.Infof("🧾 Order %s queued (%d %s)", order.ID, order.Totals.TotalCents, order.Currency)
	return order.ID, nil
}

func (s *Service) RunWorkers(ctx context.Context, numWorkers int) error {
	var wg sync.WaitGroup

	s.runWorkersForStream(ctx, &wg, numWorkers, s.queue.StreamName("OrderTask"), "main")
	s.runWorkersForStream(ctx, &wg, max(1, numWorkers/2), s.queue.StreamName("OrderRetryTask"), "retry")

	wg.Wait()
	return nil
}

func (s *Service) runWorkersForStream(ctx context.Context, wg *sync.WaitGroup, numWorkers int, streamName, workerType string) {
	// Auto-claimer picks up messages left pending by a dead consumer
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(max(s.minIdleTime, time.Second))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				consumer := fmt.Sprintf("autoclaimer-%s", workerType)
				claimedMessages, err := s.queue.AutoClaim(ctx, s.groupName, consumer, streamName, s.minIdleTime)
				if err != nil {
					log.Errorf("❌ Failed to auto-claim messages for %s: %v", streamName, err)
					continue
				}
				if len(claimedMessages) > 0 {
					log.Infof("🔄 Auto-claimed %d messages from %s stream", len(claimedMessages), workerType)
					for _, msg := range claimedMessages {
						if err := s.processMessage(ctx, &msg); err != nil {
							log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consumer := fmt.Sprintf("%s-worker-%d", workerType, workerID)
			log.Infof("🚀 Starting %s worker %d as consumer %s", workerType, workerID, consumer)
			for {
				select {
				case <-ctx.Done():
					log.Infof("🛑 %s worker %d stopping", workerType, workerID)
					return
				default:
					msg, err := s.queue.GetTask(ctx, s.groupName, consumer, streamName)
					if err != nil {
						if ctx.Err() == nil {
							log.Errorf("❌ Failed to get task from %s: %v", streamName, err)
						}
						continue
					}

					if msg != nil {
						if err := s.processMessage(ctx, msg); err != nil {
							log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}(i + 1)
	}
}

func (s *Service) processMessage(ctx context.Context, msg *redis.XMessage) error {
	taskType, ok := msg.Values["task_type"].(string)
	if !ok {
		return fmt.Errorf("invalid task type in message %s", msg.ID)
	}

	taskData, ok := msg.Values["task_data"].(string)
	if !ok {
		return fmt.Errorf("invalid task data in message %s", msg.ID)
	}

	switch taskType {
	case "OrderTask":
		orderTask, err := task.UnmarshalTask[*task.OrderTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal order task data: %w", err)
		}

		if err := s.saveOrder(ctx, &orderTask.Order); err != nil {
			retryTask := &task.OrderRetryTask{
				Order:      orderTask.Order,
				RetryCount: 0,
				Error:      err.Error(),
			}

			if _, addErr := s.queue.AddTask(ctx, retryTask); addErr != nil {
				return fmt.Errorf("failed to add retry task for order %s: %w", orderTask.Order.ID, addErr)
			}
			log.Warnf("🔄 Added order %s to retry queue due to error: %v", orderTask.Order.ID, err)
		}

	case "OrderRetryTask":
		retryTask, err := task.UnmarshalTask[*task.OrderRetryTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal retry task data: %w", err)
		}

		if err := s.retryOrder(ctx, retryTask); err != nil {
			return fmt.Errorf("failed to retry order: %w", err)
		}

	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}

	if err := s.queue.AckTask(ctx, s.queue.StreamName(taskType), s.groupName, msg.ID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}

	return nil
}

func (s *Service) saveOrder(ctx context.Context, order *domain.Order) error {
	err := s.repository.SaveOrder(ctx, order)
	s.metrics.OrdersSaved.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	log.Infof("✅ Order %s saved", order.ID)
	return nil
}

func (s *Service) retryOrder(ctx context.Context, retryTask *task.OrderRetryTask) error {
	retryTask.RetryCount++

	log.Infof("🔄 Retrying order %s (attempt %d)", retryTask.Order.ID, retryTask.RetryCount)

	if err := s.saveOrder(ctx, &retryTask.Order); err != nil {
		// Retried until it sticks
		next := &task.OrderRetryTask{
			Order:      retryTask.Order,
			RetryCount: retryTask.RetryCount,
			Error:      err.Error(),
		}

		if _, addErr := s.queue.AddTask(ctx, next); addErr != nil {
			log.Errorf("❌ Failed to re-add retry task for order %s: %v", retryTask.Order.ID, addErr)
			return addErr
		}

		log.Warnf("🔄 Order %s failed again, will retry (attempt %d): %v",
			retryTask.Order.ID, retryTask.RetryCount, err)
		return nil
	}

	log.Infof("✅ Recovered order %s after %d attempts", retryTask.Order.ID, retryTask.RetryCount)
	return nil
}
