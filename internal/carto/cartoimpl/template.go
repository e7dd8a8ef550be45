package cartoimpl

import (
	"fmt"
	"strings"
	"time"

	"github.com/gfw-api/story-api/internal/domain"
)

// The remote store only understands fully rendered SQL text, so every
// parameter is inlined as a literal: text wrapped in single quotes with
// embedded quotes doubled, absent optionals as the bare null token, and
// geometry always through a GeoJSON construction expression.

const selectColumns = "ST_Y(the_geom) AS lat, ST_X(the_geom) AS lng, details, email, " +
	"created_at, updated_at, name, title, visible, date, location, " +
	"cartodb_id AS id, media, user_id, hide_user"

const nullToken = "null"

// quote wraps a literal in single quotes. Embedded quotes are doubled when
// the value is caller supplied text; pre-encoded JSON goes in verbatim.
func quote(text string, escape bool) string {
	if escape {
		text = strings.ReplaceAll(text, "'", "''")
	}
	return "'" + text + "'"
}

func textParam(v *string) string {
	if v == nil || *v == "" {
		return nullToken
	}
	return quote(*v, true)
}

func timeParam(v *time.Time) string {
	if v == nil {
		return nullToken
	}
	return quote(v.UTC().Format(time.RFC3339), false)
}

func boolParam(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func mediaParam(encoded *string) string {
	if encoded == nil {
		return nullToken
	}
	return quote(*encoded, false)
}

func geomExpr(geojson string) string {
	return fmt.Sprintf("ST_SetSRID(ST_GeomFromGeoJSON(%s), 4326)", quote(geojson, false))
}

// pointGeoJSON builds the geometry payload from the mandatory coordinates.
func pointGeoJSON(lat, lng float64) string {
	return fmt.Sprintf(`{"type":"Point","coordinates":[%v,%v]}`, lng, lat)
}

func selectQuery(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY date ASC", selectColumns, table)
}

func selectByIDQuery(table string, id int) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE cartodb_id = %d", selectColumns, table, id)
}

func selectByUserQuery(table, userID string) string {
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE user_id = %s ORDER BY date ASC",
		selectColumns, table, quote(userID, true),
	)
}

// selectFilteredQuery lists visible stories; the spatial and period
// predicates only appear when their filter was resolved so no dangling
// fragments ever reach the remote store.
func selectFilteredQuery(table string, geometry *string, period *domain.Period) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE visible = true", selectColumns, table)
	if geometry != nil {
		fmt.Fprintf(&b, " AND ST_Intersects(the_geom, %s)", geomExpr(*geometry))
	}
	if period != nil {
		fmt.Fprintf(&b, " AND date >= %s AND date <= %s",
			quote(period.Begin.UTC().Format(time.RFC3339), false),
			quote(period.End.UTC().Format(time.RFC3339), false),
		)
	}
	b.WriteString(" ORDER BY date ASC")
	return b.String()
}

func insertQuery(table string, data *domain.StoryData, mediaJSON *string) string {
	var geom string
	if data.Lat != nil && data.Lng != nil {
		geom = pointGeoJSON(*data.Lat, *data.Lng)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (name, details, title, visible, location, email, date, user_id, media, the_geom, hide_user) "+
			"VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s) RETURNING %s",
		table,
		textParam(data.Name),
		textParam(data.Details),
		textParam(data.Title),
		boolParam(data.Visible),
		textParam(data.Location),
		textParam(data.Email),
		timeParam(data.Date),
		textParam(data.UserID),
		mediaParam(mediaJSON),
		geomExpr(geom),
		boolParam(data.HideUser),
		selectColumns,
	)
}

// updateQuery is owner conditioned: a mismatched user_id updates no row
// and the caller treats that as not-found.
func updateQuery(table string, id int, data *domain.StoryData, mediaJSON *string) string {
	var geom string
	if data.Lat != nil && data.Lng != nil {
		geom = pointGeoJSON(*data.Lat, *data.Lng)
	}

	owner := ""
	if data.UserID != nil {
		owner = *data.UserID
	}

	return fmt.Sprintf(
		"UPDATE %s SET name = %s, details = %s, title = %s, visible = %s, location = %s, "+
			"email = %s, date = %s, media = %s, the_geom = %s, hide_user = %s "+
			"WHERE cartodb_id = %d AND user_id = %s RETURNING %s",
		table,
		textParam(data.Name),
		textParam(data.Details),
		textParam(data.Title),
		boolParam(data.Visible),
		textParam(data.Location),
		textParam(data.Email),
		timeParam(data.Date),
		mediaParam(mediaJSON),
		geomExpr(geom),
		boolParam(data.HideUser),
		id,
		quote(owner, true),
		selectColumns,
	)
}

func deleteQuery(table string, id int) string {
	return fmt.Sprintf("DELETE FROM %s WHERE cartodb_id = %d", table, id)
}
