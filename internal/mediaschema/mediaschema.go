// Package mediaschema declares the tables mediatally persists: people and
// their ratings, TV series and episodes, games and play sessions, and TiVo
// recordings.
package mediaschema

import (
	"errors"

	"github.com/mediatally/mediatally/internal/schema"
)

// Name is the schema name used in reports and logs.
const Name = "mediatally"

// New builds the production schema. Tables are listed so that each one
// follows the tables it references.
func New() (*schema.Schema, error) {
	var errs []error
	build := func(b *schema.TableBuilder) *schema.Table {
		t, err := b.Build()
		if err != nil {
			errs = append(errs, err)
		}
		return t
	}

	person := schema.NewTable("person")
	person.String("username", 64, schema.NotNull)
	person.String("email", 255, schema.NotNull)
	person.String("display_name", 128, schema.Nullable)
	person.Timestamp("created_at", schema.NotNull).WithDefault(schema.Now)
	person.With(schema.Retireable)
	person.Unique("username")
	person.Unique("email")
	personT := build(person)

	series := schema.NewTable("series")
	series.String("title", 255, schema.NotNull)
	series.Integer("tvdb_id", schema.Big, schema.Nullable)
	series.Boolean("ended", schema.NotNull).WithDefault("false")
	series.Timestamp("created_at", schema.NotNull).WithDefault(schema.Now)
	series.Unique("tvdb_id")
	seriesT := build(series)

	episode := schema.NewTable("episode")
	episode.ForeignKey(seriesT, schema.NotNull)
	episode.Integer("season", schema.Small, schema.NotNull)
	episode.Integer("episode_number", schema.Small, schema.NotNull)
	episode.String("title", 255, schema.Nullable)
	episode.Timestamp("air_date", schema.Nullable)
	episode.Text("summary", schema.Nullable)
	episode.Unique("series_id", "season", "episode_number")
	episodeT := build(episode)

	rating := schema.NewTable("episode_rating")
	rating.ForeignKey(episodeT, schema.NotNull)
	rating.ForeignKey(personT, schema.NotNull)
	rating.Decimal("rating", schema.NotNull)
	rating.Timestamp("rated_at", schema.NotNull).WithDefault(schema.Now)
	rating.Unique("episode_id", "person_id")
	ratingT := build(rating)

	game := schema.NewTable("game")
	game.String("title", 255, schema.NotNull)
	game.Integer("steam_app_id", schema.Big, schema.Nullable)
	game.Integer("igdb_id", schema.Big, schema.Nullable)
	game.Timestamp("release_date", schema.Nullable)
	game.With(schema.Retireable)
	game.Unique("steam_app_id")
	gameT := build(game)

	platform := schema.NewTable("game_platform")
	platform.ForeignKey(gameT, schema.NotNull)
	platform.String("platform", 32, schema.NotNull)
	platform.Boolean("owned", schema.NotNull).WithDefault("true")
	platform.Unique("game_id", "platform")
	platformT := build(platform)

	session := schema.NewTable("play_session").PrimaryKeySize(schema.Big)
	session.ForeignKey(gameT, schema.NotNull)
	session.ForeignKey(personT, schema.NotNull)
	session.Timestamp("started_at", schema.NotNull)
	session.Integer("minutes", schema.Standard, schema.NotNull).WithDefault("0")
	sessionT := build(session)

	recording := schema.NewTable("tivo_recording")
	recording.ForeignKey(episodeT, schema.Nullable)
	recording.String("program_id", 32, schema.NotNull)
	recording.String("title", 255, schema.NotNull)
	recording.Timestamp("recorded_at", schema.NotNull)
	recording.Integer("duration_seconds", schema.Standard, schema.Nullable)
	recording.Boolean("suggestion", schema.NotNull).WithDefault("false")
	recording.Unique("program_id", "recorded_at")
	recordingT := build(recording)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return schema.New(Name,
		personT, seriesT, episodeT, ratingT,
		gameT, platformT, sessionT, recordingT,
	)
}

// NewTest builds the production schema plus mock tables used by tests to
// exercise every column type without touching production tables.
func NewTest() (*schema.Schema, error) {
	s, err := New()
	if err != nil {
		return nil, err
	}

	mock := schema.NewTable("mock_entity")
	mock.Integer("small_value", schema.Small, schema.Nullable)
	mock.Integer("big_value", schema.Big, schema.Nullable)
	mock.Decimal("amount", schema.Nullable)
	mock.String("code", 8, schema.NotNull).WithDefault("none")
	mock.Text("notes", schema.Nullable)
	mock.Boolean("active", schema.NotNull).WithDefault("true")
	mock.Timestamp("seen_at", schema.NotNull).WithDefault(schema.Now)
	mockT, err := mock.Build()
	if err != nil {
		return nil, err
	}

	child := schema.NewTable("mock_child")
	child.ForeignKeyAs("parent_id", mockT, schema.NotNull)
	child.String("label", 32, schema.NotNull)
	child.Unique("parent_id", "label")
	childT, err := child.Build()
	if err != nil {
		return nil, err
	}

	return s.With(mockT, childT)
}
