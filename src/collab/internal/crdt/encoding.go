package crdt

import (
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the update record.
const (
	_updateInsertField protowire.Number = 1
	_updateDeleteField protowire.Number = 2

	_idClientField     protowire.Number = 1
	_idClockField      protowire.Number = 2
	_insertIDField     protowire.Number = 1
	_insertFragField   protowire.Number = 2
	_insertOriginField protowire.Number = 3
	_insertRuneField   protowire.Number = 4
	_deleteTargetField protowire.Number = 1
)

type insertOp struct {
	id        ID
	fragment  string
	origin    ID
	hasOrigin bool
	content   rune
}

type deleteOp struct {
	target ID
}

type update struct {
	inserts []insertOp
	deletes []deleteOp
}

func (u update) empty() bool {
	return len(u.inserts) == 0 && len(u.deletes) == 0
}

func appendID(b []byte, num protowire.Number, id ID) []byte {
	var m []byte
	m = protowire.AppendTag(m, _idClientField, protowire.VarintType)
	m = protowire.AppendVarint(m, id.Client)
	m = protowire.AppendTag(m, _idClockField, protowire.VarintType)
	m = protowire.AppendVarint(m, id.Clock)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

func encodeUpdate(u update) []byte {
	var b []byte
	for _, op := range u.inserts {
		var m []byte
		m = appendID(m, _insertIDField, op.id)
		m = protowire.AppendTag(m, _insertFragField, protowire.BytesType)
		m = protowire.AppendString(m, op.fragment)
		if op.hasOrigin {
			m = appendID(m, _insertOriginField, op.origin)
		}
		m = protowire.AppendTag(m, _insertRuneField, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(op.content))

		b = protowire.AppendTag(b, _updateInsertField, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}
	for _, op := range u.deletes {
		var m []byte
		m = appendID(m, _deleteTargetField, op.target)

		b = protowire.AppendTag(b, _updateDeleteField, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}
	return b
}

// walkFields calls fn for every field in b. fn returns the number of bytes it consumed from the value, or a negative protowire error code.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, value []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m := fn(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func consumeID(b []byte) (ID, int) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return ID{}, n
	}
	var id ID
	err := walkFields(v, func(num protowire.Number, typ protowire.Type, value []byte) int {
		if typ != protowire.VarintType {
			return 0
		}
		x, m := protowire.ConsumeVarint(value)
		switch num {
		case _idClientField:
			id.Client = x
		case _idClockField:
			id.Clock = x
		}
		return m
	})
	if err != nil {
		return ID{}, -1
	}
	return id, n
}

func decodeInsert(b []byte) (insertOp, error) {
	var op insertOp
	var hasID, hasRune bool
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, value []byte) int {
		switch {
		case num == _insertIDField && typ == protowire.BytesType:
			id, n := consumeID(value)
			op.id, hasID = id, n >= 0
			return n
		case num == _insertFragField && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(value)
			op.fragment = s
			return n
		case num == _insertOriginField && typ == protowire.BytesType:
			id, n := consumeID(value)
			op.origin, op.hasOrigin = id, n >= 0
			return n
		case num == _insertRuneField && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(value)
			op.content, hasRune = rune(x), n >= 0
			return n
		}
		return 0
	})
	if err != nil {
		return insertOp{}, err
	}
	if !hasID || !hasRune {
		return insertOp{}, fmt.Errorf("insert is missing its id or content")
	}
	if !utf8.ValidRune(op.content) {
		return insertOp{}, fmt.Errorf("insert %v carries invalid rune %d", op.id, op.content)
	}
	return op, nil
}

func decodeDelete(b []byte) (deleteOp, error) {
	var op deleteOp
	var hasTarget bool
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, value []byte) int {
		if num == _deleteTargetField && typ == protowire.BytesType {
			id, n := consumeID(value)
			op.target, hasTarget = id, n >= 0
			return n
		}
		return 0
	})
	if err != nil {
		return deleteOp{}, err
	}
	if !hasTarget {
		return deleteOp{}, fmt.Errorf("delete is missing its target")
	}
	return op, nil
}

func decodeUpdate(b []byte) (update, error) {
	var u update
	var opErr error
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, value []byte) int {
		if typ != protowire.BytesType || (num != _updateInsertField && num != _updateDeleteField) {
			return 0
		}
		v, n := protowire.ConsumeBytes(value)
		if n < 0 {
			return n
		}
		if num == _updateInsertField {
			op, err := decodeInsert(v)
			if err != nil {
				opErr = err
				return -1
			}
			u.inserts = append(u.inserts, op)
		} else {
			op, err := decodeDelete(v)
			if err != nil {
				opErr = err
				return -1
			}
			u.deletes = append(u.deletes, op)
		}
		return n
	})
	if opErr != nil {
		return update{}, fmt.Errorf("malformed update: %w", opErr)
	}
	if err != nil {
		return update{}, fmt.Errorf("malformed update: %w", err)
	}
	return u, nil
}
