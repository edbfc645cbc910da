package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

const caseEventsCollection = "case_events"

// caseEventDocument is the stored shape of a domain.CaseEvent.
type caseEventDocument struct {
	CaseID     int64     `bson:"case_id"`
	Kind       string    `bson:"kind"`
	Status     string    `bson:"status,omitempty"`
	ActorID    int64     `bson:"actor_id,omitempty"`
	At         time.Time `bson:"at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

func toDocument(e *domain.CaseEvent, recordedAt time.Time) caseEventDocument {
	return caseEventDocument{
		CaseID:     e.CaseID,
		Kind:       string(e.Kind),
		Status:     string(e.Status),
		ActorID:    e.ActorID,
		At:         e.At.UTC(),
		RecordedAt: recordedAt.UTC(),
	}
}

func (d caseEventDocument) toDomain() *domain.CaseEvent {
	return &domain.CaseEvent{
		CaseID:  d.CaseID,
		Kind:    domain.CaseEventKind(d.Kind),
		Status:  domain.CaseStatus(d.Status),
		ActorID: d.ActorID,
		At:      d.At.UTC(),
	}
}

// EventRepository implements ports.EventRepository using MongoDB.
type EventRepository struct {
	coll *mongo.Collection
}

// NewEventRepository creates a new EventRepository on the case_events collection.
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{coll: db.Collection(caseEventsCollection)}
}

// EnsureIndexes creates the index backing ListByCase.
func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "case_id", Value: 1}, {Key: "at", Value: 1}},
		Options: options.Index().SetName("case_id_at"),
	})
	if err != nil {
		return fmt.Errorf("create case_events index: %w", err)
	}
	return nil
}

// InsertEvent persists a case event to the audit collection.
func (r *EventRepository) InsertEvent(ctx context.Context, event *domain.CaseEvent) error {
	_, err := r.coll.InsertOne(ctx, toDocument(event, time.Now()))
	return err
}

// ListByCase returns the events of caseID, oldest first.
func (r *EventRepository) ListByCase(ctx context.Context, caseID int64) ([]*domain.CaseEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"case_id": caseID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []*domain.CaseEvent{}
	for cur.Next(ctx) {
		var doc caseEventDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		events = append(events, doc.toDomain())
	}
	return events, cur.Err()
}
