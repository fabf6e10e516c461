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
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"crawshaw.io/sqlite"
	"github.com/fatih/structs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const inventoryVersion = 1
const inventoryApplicationID = 1634890853
const discriminator = "type"

// An Inventory is a machine readable log of an extraction run. Every
// exported file becomes one JSON element in a sqlite database, with SQL views
// per element type created on Close.
type Inventory struct {
	cursor *sqlite.Conn
	types  *typeMap
}

// NewInventory creates a new inventory database. The url ":memory:" creates
// a transient inventory for tests.
func NewInventory(url string) (*Inventory, error) {
	inventory := &Inventory{types: newTypeMap()}

	var err error
	inventory.cursor, err = sqlite.OpenConn(url, 0)
	if err != nil {
		return nil, errors.Wrap(err, "could not create inventory")
	}

	if err := setPragma(inventory.cursor, "application_id", inventoryApplicationID); err != nil {
		return nil, err
	}
	if err := setPragma(inventory.cursor, "user_version", inventoryVersion); err != nil {
		return nil, err
	}

	err = inventory.exec("CREATE VIRTUAL TABLE `elements` " +
		"USING fts5(id UNINDEXED, json, insert_time UNINDEXED, tokenize=\"unicode61 tokenchars '/.'\")")
	if err != nil {
		return nil, err
	}
	return inventory, nil
}

// OpenInventory opens an existing inventory database.
func OpenInventory(url string) (*Inventory, error) {
	inventory := &Inventory{types: newTypeMap()}

	var err error
	inventory.cursor, err = sqlite.OpenConn(url, 0)
	if err != nil {
		return nil, errors.Wrap(err, "could not open inventory")
	}

	applicationID, err := pragma(inventory.cursor, "application_id")
	if err != nil {
		return nil, err
	}
	if applicationID != inventoryApplicationID {
		return nil, fmt.Errorf("wrong file format (application_id is %d, requires %d)",
			applicationID, inventoryApplicationID)
	}

	version, err := pragma(inventory.cursor, "user_version")
	if err != nil {
		return nil, err
	}
	if version != inventoryVersion {
		return nil, fmt.Errorf("wrong file format (user_version is %d, requires %d)",
			version, inventoryVersion)
	}
	return inventory, nil
}

// Insert adds a single element.
func (inventory *Inventory) Insert(element JSONElement) (string, error) {
	nestedElement := map[string]interface{}{}
	if err := json.Unmarshal(element, &nestedElement); err != nil {
		return "", errors.Wrap(err, "invalid element")
	}

	flatElement, err := flatten(nestedElement)
	if err != nil {
		return "", errors.Wrap(err, "could not flatten element")
	}

	elementType, ok := flatElement[discriminator]
	if !ok {
		return "", errors.New("element requires type")
	}

	id, ok := flatElement["id"]
	if !ok {
		id = elementType.(string) + "--" + uuid.New().String()
		nestedElement["id"] = id
		flatElement["id"] = id

		element, err = json.Marshal(nestedElement)
		if err != nil {
			return "", err
		}
	}

	inventory.types.addAll(elementType.(string), flatElement)

	stmt, err := inventory.cursor.Prepare(
		"INSERT INTO `elements` (id, json, insert_time) VALUES ($id, $json, $time)")
	if err != nil {
		return "", errors.Wrap(err, "could not prepare insert statement")
	}
	stmt.SetText("$id", id.(string))
	stmt.SetText("$json", string(element))
	stmt.SetText("$time", time.Now().UTC().Format(elementTimeFormat))
	if _, err := stmt.Step(); err != nil {
		return "", errors.Wrap(err, "could not insert element")
	}
	return id.(string), stmt.Finalize()
}

// InsertStruct converts a Go struct to a map and inserts it.
func (inventory *Inventory) InsertStruct(element interface{}) (string, error) {
	b, err := json.Marshal(structs.Map(element))
	if err != nil {
		return "", err
	}
	return inventory.Insert(b)
}

// Select retrieves elements matching any of the given conditions, all
// elements if conditions is nil.
func (inventory *Inventory) Select(conditions []map[string]string) ([]JSONElement, error) {
	var ors []string
	for _, condition := range conditions {
		var ands []string
		for key, value := range condition {
			ands = append(ands, fmt.Sprintf("json_extract(json, '$.%s') LIKE '%s'", key, value))
		}
		if len(ands) > 0 {
			ors = append(ors, "("+strings.Join(ands, " AND ")+")")
		}
	}

	query := "SELECT json FROM `elements`"
	if len(ors) > 0 {
		query += " WHERE " + strings.Join(ors, " OR ") // #nosec
	}

	stmt, err := inventory.cursor.Prepare(query) // #nosec
	if err != nil {
		return nil, err
	}
	return inventory.rowsToElements(stmt)
}

// All returns every element.
func (inventory *Inventory) All() ([]JSONElement, error) {
	return inventory.Select(nil)
}

// Query executes a sql query.
func (inventory *Inventory) Query(query string) ([]JSONElement, error) {
	stmt, err := inventory.cursor.Prepare(query)
	if err != nil {
		return nil, err
	}
	return inventory.rowsToElements(stmt)
}

// Close creates the type views and closes the database.
func (inventory *Inventory) Close() error {
	if inventory.types.changed {
		if err := inventory.createViews(); err != nil {
			return err
		}
	}
	return inventory.cursor.Close()
}

func (inventory *Inventory) createViews() error {
	for typeName, fields := range inventory.types.all() {
		if err := inventory.exec(fmt.Sprintf("DROP VIEW IF EXISTS '%s'", typeName)); err != nil {
			return err
		}

		var columns []string
		for field := range fields {
			columns = append(columns, fmt.Sprintf("json_extract(json, '$.%s') as '%s'", field, field))
		}
		sort.Strings(columns)

		err := inventory.exec(
			fmt.Sprintf("CREATE VIEW '%s' AS SELECT %s FROM elements WHERE json_extract(json, '$.%s') = '%s'",
				typeName, strings.Join(columns, ", "), discriminator, typeName),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (inventory *Inventory) rowsToElements(stmt *sqlite.Stmt) ([]JSONElement, error) {
	elements := []JSONElement{}
	for {
		if hasRow, err := stmt.Step(); err != nil {
			return nil, err
		} else if !hasRow {
			break
		}
		elements = append(elements, JSONElement(stmt.GetText("json")))
	}
	return elements, stmt.Finalize()
}

func (inventory *Inventory) exec(query string) error {
	stmt, err := inventory.cursor.Prepare(query)
	if err != nil {
		return err
	}
	if _, err := stmt.Step(); err != nil {
		return err
	}
	return stmt.Finalize()
}

func pragma(conn *sqlite.Conn, name string) (int64, error) {
	stmt, err := conn.Prepare("PRAGMA " + name)
	if err != nil {
		return 0, err
	}
	if _, err := stmt.Step(); err != nil {
		return 0, err
	}
	i := stmt.GetInt64(name)
	return i, stmt.Finalize()
}

func setPragma(conn *sqlite.Conn, name string, i int64) error {
	stmt, err := conn.Prepare("PRAGMA " + name + " = " + fmt.Sprint(i))
	if err != nil {
		return err
	}
	if _, err := stmt.Step(); err != nil {
		return err
	}
	return stmt.Finalize()
}

// ElementType reads the discriminator field of an element.
func ElementType(element JSONElement) string {
	return gjson.GetBytes(element, discriminator).String()
}
