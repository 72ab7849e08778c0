package dao

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	opSet  = "$set"
	opPush = "$push"
	opPull = "$pull"
)

type clause struct {
	op    string
	field string
	value bson.RawValue
}

// Update is a partial update applied to a single document. It is either a set
// of operator clauses or an aggregation pipeline; the two forms do not mix.
type Update struct {
	clauses []clause
	stages  []bson.D
}

// Set replaces the whole value of a top-level field.
func Set(field string, value any) (Update, error) {
	return newUpdate(opSet, field, value)
}

// Push appends value to an array field, keeping existing elements and their order.
func Push(field string, value any) (Update, error) {
	return newUpdate(opPush, field, value)
}

// Pull removes every element of an array field that matches the sub-filter.
func Pull(field string, match bson.D) (Update, error) {
	return newUpdate(opPull, field, match)
}

// ReplaceElement removes every element of an array field whose idField equals
// id and appends elem, in one pipeline write. A missing array field is treated
// as empty. Values are passed through $literal so strings starting with "$" are
// not read as field paths.
func ReplaceElement(field, idField string, id any, elem any) (Update, error) {
	idv, err := EncodeKey(id)
	if err != nil {
		return Update{}, err
	}
	ev, err := EncodeKey(elem)
	if err != nil {
		return Update{}, err
	}

	kept := bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, bson.A{}}}}},
		{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this." + idField, literal(idv)}}}},
	}}}
	stage := bson.D{{Key: opSet, Value: bson.D{
		{Key: field, Value: bson.D{{Key: "$concatArrays", Value: bson.A{kept, bson.A{literal(ev)}}}}},
	}}}
	return Update{stages: []bson.D{stage}}, nil
}

func literal(v bson.RawValue) bson.D {
	return bson.D{{Key: "$literal", Value: v}}
}

func newUpdate(op, field string, value any) (Update, error) {
	rv, err := EncodeKey(value)
	if err != nil {
		return Update{}, err
	}
	return Update{clauses: []clause{{op: op, field: field, value: rv}}}, nil
}

// And returns an update applying both u and other in a single write.
func (u Update) And(other Update) Update {
	clauses := make([]clause, 0, len(u.clauses)+len(other.clauses))
	clauses = append(clauses, u.clauses...)
	clauses = append(clauses, other.clauses...)
	stages := make([]bson.D, 0, len(u.stages)+len(other.stages))
	stages = append(stages, u.stages...)
	stages = append(stages, other.stages...)
	return Update{clauses: clauses, stages: stages}
}

// IsEmpty reports whether the update has no clauses and no stages.
func (u Update) IsEmpty() bool {
	return len(u.clauses) == 0 && len(u.stages) == 0
}

// IsPipeline reports whether the update is in pipeline form.
func (u Update) IsPipeline() bool {
	return len(u.stages) > 0
}

// Pipeline returns the stages of a pipeline update.
func (u Update) Pipeline() bson.A {
	out := make(bson.A, 0, len(u.stages))
	for _, stage := range u.stages {
		out = append(out, stage)
	}
	return out
}

// expression returns what is sent to the engine, or an error when operator
// clauses and pipeline stages were combined.
func (u Update) expression() (any, error) {
	switch {
	case len(u.clauses) > 0 && len(u.stages) > 0:
		return nil, errors.New("operator clauses and pipeline stages cannot be combined")
	case len(u.stages) > 0:
		return u.Pipeline(), nil
	default:
		return u.Document(), nil
	}
}

// Document renders the update expression, grouping clauses by operator in the
// order operators first appear.
func (u Update) Document() bson.D {
	var doc bson.D
	index := make(map[string]int)
	for _, c := range u.clauses {
		i, ok := index[c.op]
		if !ok {
			index[c.op] = len(doc)
			doc = append(doc, bson.E{Key: c.op, Value: bson.D{{Key: c.field, Value: c.value}}})
			continue
		}
		fields := doc[i].Value.(bson.D)
		doc[i].Value = append(fields, bson.E{Key: c.field, Value: c.value})
	}
	return doc
}

