/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

package artifactextractor

import (
	"fmt"
	"strconv"
)

// flatten converts a nested map into a flat map with dotted keys, e.g.
// {"origin": {"path": "/x"}} becomes {"origin.path": "/x"}.
func flatten(nested map[string]interface{}) (map[string]interface{}, error) {
	flat := map[string]interface{}{}
	if err := flattenValue(flat, "", nested); err != nil {
		return nil, err
	}
	return flat, nil
}

func flattenValue(flat map[string]interface{}, prefix string, value interface{}) error {
	switch value := value.(type) {
	case map[string]interface{}:
		if len(value) == 0 && prefix != "" {
			flat[prefix] = value
		}
		for key, child := range value {
			if err := flattenValue(flat, joinKey(prefix, key), child); err != nil {
				return err
			}
		}
	case []interface{}:
		if len(value) == 0 && prefix != "" {
			flat[prefix] = value
		}
		for i, child := range value {
			if err := flattenValue(flat, joinKey(prefix, strconv.Itoa(i)), child); err != nil {
				return err
			}
		}
	default:
		if prefix == "" {
			return fmt.Errorf("cannot flatten value of type %T", value)
		}
		flat[prefix] = value
	}
	return nil
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
