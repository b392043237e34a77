// Package main provides the command line client for the cadenza daemon.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("cadectl", "cadenza player control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8307").String()

	// songs command
	songsCmd      = app.Command("songs", "List library songs")
	songsCategory = songsCmd.Flag("category", "Filter by category").String()

	// search command
	searchCmd   = app.Command("search", "Search the library")
	searchQuery = searchCmd.Arg("query", "Search query").Required().String()

	// favorites command
	favoritesCmd = app.Command("favorites", "List favorite songs")

	// favorite command
	favoriteCmd = app.Command("favorite", "Toggle a song's favorite flag")
	favoriteID  = favoriteCmd.Arg("song-id", "Song ID").Required().Int64()

	// scan command
	scanCmd = app.Command("scan", "Start a background library scan")

	// play command
	playCmd      = app.Command("play", "Play a song")
	playID       = playCmd.Arg("song-id", "Song ID").Required().Int64()
	playSource   = playCmd.Flag("source", "Queue source: all, favorites, category, search, playlist").Default("all").String()
	playCategory = playCmd.Flag("category", "Category for --source=category").String()
	playQuery    = playCmd.Flag("query", "Query for --source=search").String()
	playPlaylist = playCmd.Flag("playlist", "Playlist ID for --source=playlist").Int64()

	// transport commands
	toggleCmd  = app.Command("toggle", "Toggle play/pause")
	nextCmd    = app.Command("next", "Skip to the next song")
	prevCmd    = app.Command("prev", "Restart or skip to the previous song")
	shuffleCmd = app.Command("shuffle", "Toggle shuffle")
	repeatCmd  = app.Command("repeat", "Cycle repeat mode")

	// seek command
	seekCmd = app.Command("seek", "Seek to a position")
	seekMs  = seekCmd.Arg("position-ms", "Position in milliseconds").Required().Int64()

	// status command
	statusCmd = app.Command("status", "Show the playback state")

	// watch command
	watchCmd = app.Command("watch", "Follow playback state changes")

	// queue command
	queueCmd = app.Command("queue", "Show the loaded queue")

	// playlist commands
	playlistsCmd = app.Command("playlists", "List playlists")

	playlistCreateCmd  = app.Command("playlist-create", "Create a playlist")
	playlistCreateName = playlistCreateCmd.Arg("name", "Playlist name").Required().String()

	playlistShowCmd = app.Command("playlist-show", "Show a playlist with its songs")
	playlistShowID  = playlistShowCmd.Arg("playlist-id", "Playlist ID").Required().Int64()

	playlistDeleteCmd = app.Command("playlist-delete", "Delete a playlist")
	playlistDeleteID  = playlistDeleteCmd.Arg("playlist-id", "Playlist ID").Required().Int64()

	playlistAddCmd    = app.Command("playlist-add", "Add a song to a playlist")
	playlistAddID     = playlistAddCmd.Arg("playlist-id", "Playlist ID").Required().Int64()
	playlistAddSongID = playlistAddCmd.Arg("song-id", "Song ID").Required().Int64()

	playlistRemoveCmd    = app.Command("playlist-remove", "Remove a song from a playlist")
	playlistRemoveID     = playlistRemoveCmd.Arg("playlist-id", "Playlist ID").Required().Int64()
	playlistRemoveSongID = playlistRemoveCmd.Arg("song-id", "Song ID").Required().Int64()

	// remote command
	remoteCmd   = app.Command("remote", "Search online catalogs")
	remoteQuery = remoteCmd.Arg("query", "Search query").Required().String()

	// sentiment command
	sentimentCmd  = app.Command("sentiment", "Classify a free-text note")
	sentimentText = sentimentCmd.Arg("text", "Text to classify").Required().String()

	// note command
	noteCmd    = app.Command("note", "Attach a note to a song, storing its sentiment")
	noteSongID = noteCmd.Arg("song-id", "Song ID").Required().Int64()
	noteText   = noteCmd.Arg("text", "Note text").Required().String()
)

type songJSON struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMs int64  `json:"duration_ms"`
	Category   string `json:"category"`
	Favorite   bool   `json:"favorite"`
	PlayCount  int    `json:"play_count"`
}

type playlistJSON struct {
	ID    int64      `json:"id"`
	Name  string     `json:"name"`
	Songs []songJSON `json:"songs"`
}

type snapshotJSON struct {
	Current    *songJSON `json:"current"`
	State      string    `json:"state"`
	Playing    bool      `json:"playing"`
	Shuffle    bool      `json:"shuffle"`
	Repeat     string    `json:"repeat"`
	Progress   float64   `json:"progress"`
	DurationMs int64     `json:"duration_ms"`
}

type remoteTrackJSON struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	c := &client{base: *server}

	// Execute command
	switch command {
	case songsCmd.FullCommand():
		listSongs(c, *songsCategory)
	case searchCmd.FullCommand():
		searchSongs(c, *searchQuery)
	case favoritesCmd.FullCommand():
		listFavorites(c)
	case favoriteCmd.FullCommand():
		toggleFavorite(c, *favoriteID)
	case scanCmd.FullCommand():
		startScan(c)
	case playCmd.FullCommand():
		play(c)
	case toggleCmd.FullCommand():
		transport(c, "/api/player/toggle")
	case nextCmd.FullCommand():
		transport(c, "/api/player/next")
	case prevCmd.FullCommand():
		transport(c, "/api/player/previous")
	case shuffleCmd.FullCommand():
		transport(c, "/api/player/shuffle")
	case repeatCmd.FullCommand():
		transport(c, "/api/player/repeat")
	case seekCmd.FullCommand():
		seek(c, *seekMs)
	case statusCmd.FullCommand():
		status(c)
	case watchCmd.FullCommand():
		watch(c)
	case queueCmd.FullCommand():
		showQueue(c)
	case playlistsCmd.FullCommand():
		listPlaylists(c)
	case playlistCreateCmd.FullCommand():
		createPlaylist(c, *playlistCreateName)
	case playlistShowCmd.FullCommand():
		showPlaylist(c, *playlistShowID)
	case playlistDeleteCmd.FullCommand():
		deletePlaylist(c, *playlistDeleteID)
	case playlistAddCmd.FullCommand():
		addPlaylistSong(c, *playlistAddID, *playlistAddSongID)
	case playlistRemoveCmd.FullCommand():
		removePlaylistSong(c, *playlistRemoveID, *playlistRemoveSongID)
	case remoteCmd.FullCommand():
		remoteSearch(c, *remoteQuery)
	case sentimentCmd.FullCommand():
		analyzeSentiment(c, *sentimentText)
	case noteCmd.FullCommand():
		noteSong(c, *noteSongID, *noteText)
	}
}

// client is a thin JSON client over the daemon's HTTP API.
type client struct {
	base string
}

func (c *client) get(path string, query url.Values, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := http.Get(u)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *client) post(path string, body, out any) error {
	payload := []byte("{}")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	resp, err := http.Post(c.base+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *client) delete(path string, out any) error {
	req, err := http.NewRequest(http.MethodDelete, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fatal(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func listSongs(c *client, category string) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	var songs []songJSON
	if err := c.get("/api/songs", q, &songs); err != nil {
		fatal(err)
	}
	printSongs(songs)
}

func searchSongs(c *client, query string) {
	var songs []songJSON
	if err := c.get("/api/search", url.Values{"q": []string{query}}, &songs); err != nil {
		fatal(err)
	}
	printSongs(songs)
}

func listFavorites(c *client) {
	var songs []songJSON
	if err := c.get("/api/favorites", nil, &songs); err != nil {
		fatal(err)
	}
	printSongs(songs)
}

func toggleFavorite(c *client, id int64) {
	var s songJSON
	if err := c.post("/api/songs/"+strconv.FormatInt(id, 10)+"/favorite", nil, &s); err != nil {
		fatal(err)
	}
	mark := "removed from"
	if s.Favorite {
		mark = "added to"
	}
	fmt.Printf("%s - %s %s favorites\n", s.Artist, s.Title, mark)
}

func startScan(c *client) {
	var resp struct {
		RunID string `json:"run_id"`
	}
	if err := c.post("/api/scan", nil, &resp); err != nil {
		fatal(err)
	}
	fmt.Printf("Scan started: run %s\n", resp.RunID)
}

func play(c *client) {
	body := map[string]any{
		"song_id": *playID,
		"source":  *playSource,
	}
	if *playCategory != "" {
		body["category"] = *playCategory
	}
	if *playQuery != "" {
		body["query"] = *playQuery
	}
	if *playPlaylist != 0 {
		body["playlist_id"] = *playPlaylist
	}

	var snap snapshotJSON
	if err := c.post("/api/player/play", body, &snap); err != nil {
		fatal(err)
	}
	printSnapshot(snap)
}

func transport(c *client, path string) {
	var snap snapshotJSON
	if err := c.post(path, nil, &snap); err != nil {
		fatal(err)
	}
	printSnapshot(snap)
}

func seek(c *client, positionMs int64) {
	var snap snapshotJSON
	if err := c.post("/api/player/seek", map[string]any{"position_ms": positionMs}, &snap); err != nil {
		fatal(err)
	}
	printSnapshot(snap)
}

func status(c *client) {
	var snap snapshotJSON
	if err := c.get("/api/player", nil, &snap); err != nil {
		fatal(err)
	}
	printSnapshot(snap)
}

// watch follows the server-sent snapshot stream until interrupted.
func watch(c *client) {
	resp, err := http.Get(c.base + "/api/player/events")
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fatal(fmt.Errorf("%s", resp.Status))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var snap snapshotJSON
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap); err != nil {
			continue
		}
		printSnapshot(snap)
	}
	if err := scanner.Err(); err != nil {
		fatal(err)
	}
}

func showQueue(c *client) {
	var songs []songJSON
	if err := c.get("/api/player/queue", nil, &songs); err != nil {
		fatal(err)
	}
	printSongs(songs)
}

func listPlaylists(c *client) {
	var playlists []playlistJSON
	if err := c.get("/api/playlists", nil, &playlists); err != nil {
		fatal(err)
	}
	if len(playlists) == 0 {
		fmt.Println("No playlists")
		return
	}
	for _, p := range playlists {
		fmt.Printf("%4d  %s\n", p.ID, p.Name)
	}
}

func createPlaylist(c *client, name string) {
	var p playlistJSON
	if err := c.post("/api/playlists", map[string]string{"name": name}, &p); err != nil {
		fatal(err)
	}
	fmt.Printf("Created playlist %d: %s\n", p.ID, p.Name)
}

func showPlaylist(c *client, id int64) {
	var p playlistJSON
	if err := c.get("/api/playlists/"+strconv.FormatInt(id, 10), nil, &p); err != nil {
		fatal(err)
	}
	fmt.Printf("%s (%d songs)\n", p.Name, len(p.Songs))
	printSongs(p.Songs)
}

func deletePlaylist(c *client, id int64) {
	if err := c.delete("/api/playlists/"+strconv.FormatInt(id, 10), nil); err != nil {
		fatal(err)
	}
	fmt.Println("Deleted")
}

func addPlaylistSong(c *client, playlistID, songID int64) {
	path := "/api/playlists/" + strconv.FormatInt(playlistID, 10) + "/songs"
	if err := c.post(path, map[string]int64{"song_id": songID}, nil); err != nil {
		fatal(err)
	}
	fmt.Println("Added")
}

func removePlaylistSong(c *client, playlistID, songID int64) {
	path := "/api/playlists/" + strconv.FormatInt(playlistID, 10) +
		"/songs/" + strconv.FormatInt(songID, 10)
	if err := c.delete(path, nil); err != nil {
		fatal(err)
	}
	fmt.Println("Removed")
}

func remoteSearch(c *client, query string) {
	var tracks []remoteTrackJSON
	if err := c.get("/api/remote/search", url.Values{"q": []string{query}}, &tracks); err != nil {
		fatal(err)
	}
	if len(tracks) == 0 {
		fmt.Println("No results")
		return
	}
	for _, t := range tracks {
		fmt.Printf("[%s] %s - %s", t.Source, t.Artist, t.Title)
		if t.Album != "" {
			fmt.Printf(" (%s)", t.Album)
		}
		fmt.Println()
	}
}

func analyzeSentiment(c *client, text string) {
	var resp struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := c.post("/api/sentiment", map[string]string{"text": text}, &resp); err != nil {
		fatal(err)
	}
	fmt.Printf("%s (score %.0f)\n", resp.Label, resp.Score)
}

func noteSong(c *client, id int64, text string) {
	var s struct {
		songJSON
		Sentiment string `json:"sentiment"`
	}
	path := "/api/songs/" + strconv.FormatInt(id, 10) + "/sentiment"
	if err := c.post(path, map[string]string{"text": text}, &s); err != nil {
		fatal(err)
	}
	fmt.Printf("%s - %s noted as %s\n", s.Artist, s.Title, s.Sentiment)
}

func printSongs(songs []songJSON) {
	if len(songs) == 0 {
		fmt.Println("No songs")
		return
	}
	for _, s := range songs {
		fav := " "
		if s.Favorite {
			fav = "*"
		}
		fmt.Printf("%8d %s %-12s %s - %s [%s]\n",
			s.ID, fav, formatDuration(s.DurationMs), s.Artist, s.Title, s.Category)
	}
}

func printSnapshot(snap snapshotJSON) {
	if snap.Current == nil {
		fmt.Println("Nothing loaded")
		return
	}

	mode := ""
	if snap.Shuffle {
		mode += " shuffle"
	}
	if snap.Repeat != "" && snap.Repeat != "off" {
		mode += " repeat:" + snap.Repeat
	}

	pos := time.Duration(float64(snap.DurationMs)*snap.Progress) * time.Millisecond
	fmt.Printf("[%s] %s - %s  %s / %s%s\n",
		snap.State,
		snap.Current.Artist, snap.Current.Title,
		formatDuration(pos.Milliseconds()), formatDuration(snap.DurationMs),
		mode)
}

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
