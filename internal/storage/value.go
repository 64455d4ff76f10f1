/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package storage

import "strconv"

// Value is a small tagged union holding either an integer or a text
// literal, the two shapes a caller may pass in before schema
// normalization coerces it to the target column's type.
type Value struct {
	isText bool
	i      int32
	s      string
}

// IntValue wraps an integer literal.
func IntValue(i int32) Value { return Value{i: i} }

// TextValue wraps a text literal.
func TextValue(s string) Value { return Value{isText: true, s: s} }

// IsText reports whether the value was constructed as text.
func (v Value) IsText() bool { return v.isText }

// IsInt reports whether the value was constructed as an integer.
func (v Value) IsInt() bool { return !v.isText }

// Int returns the integer form of the value. Callers normalize via
// Schema.Normalize before relying on this for a Text-typed value.
func (v Value) Int() int32 { return v.i }

// Text returns the text form of the value.
func (v Value) Text() string {
	if v.isText {
		return v.s
	}
	return strconv.FormatInt(int64(v.i), 10)
}

// String implements fmt.Stringer for logging and debugging.
func (v Value) String() string {
	return v.Text()
}
