// Package schema checks record attributes against CUE constraints.
//
// A schema file declares one constraint per id prefix under a top-level
// "schemas" struct:
//
//	schemas: {
//		"/parts": close({
//			name:   string
//			qty:    int & >=0
//			owner?: {"$ref": string}
//		})
//	}
//
// An entry is checked against the constraint of the longest prefix that
// owns its id ("/parts" owns "/parts/7" but not "/partsbin/1"). Ids no
// prefix owns are not checked. References are encoded as {"$ref": id}.
//
// *Set implements engine.Validator.
package schema
