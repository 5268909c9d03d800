package channel

// Channel is a registered channel name. Values are the wire contract shared by the
// backend and every UI process; renaming one changes the registry fingerprint.
type Channel string

func (c Channel) String() string {
	return string(c)
}

// Auth
const (
	AuthLogin          Channel = "auth:login"
	AuthLogout         Channel = "auth:logout"
	AuthGetSession     Channel = "auth:getSession"
	AuthRefresh        Channel = "auth:refresh"
	AuthSessionChanged Channel = "auth:sessionChanged"
)

// Collection
const (
	CollectionGet          Channel = "collection:get"
	CollectionSearch       Channel = "collection:search"
	CollectionGetAlbum     Channel = "collection:getAlbum"
	CollectionGetArtist    Channel = "collection:getArtist"
	CollectionSync         Channel = "collection:sync"
	CollectionSyncProgress Channel = "collection:syncProgress"
	CollectionUpdated      Channel = "collection:updated"
)

// Player
const (
	PlayerPlay         Channel = "player:play"
	PlayerPause        Channel = "player:pause"
	PlayerToggle       Channel = "player:toggle"
	PlayerStop         Channel = "player:stop"
	PlayerNext         Channel = "player:next"
	PlayerPrevious     Channel = "player:previous"
	PlayerSeek         Channel = "player:seek"
	PlayerSetVolume    Channel = "player:setVolume"
	PlayerGetState     Channel = "player:getState"
	PlayerStateChanged Channel = "player:stateChanged"
	PlayerTimeUpdate   Channel = "player:timeUpdate"
	PlayerTrackChanged Channel = "player:trackChanged"
	PlayerError        Channel = "player:error"
)

// Queue
const (
	QueueGet     Channel = "queue:get"
	QueueAdd     Channel = "queue:add"
	QueueAddNext Channel = "queue:addNext"
	QueueRemove  Channel = "queue:remove"
	QueueMove    Channel = "queue:move"
	QueueClear   Channel = "queue:clear"
	QueueShuffle Channel = "queue:shuffle"
	QueueUpdated Channel = "queue:updated"
)

// Playlist
const (
	PlaylistList         Channel = "playlist:list"
	PlaylistGet          Channel = "playlist:get"
	PlaylistCreate       Channel = "playlist:create"
	PlaylistRename       Channel = "playlist:rename"
	PlaylistDelete       Channel = "playlist:delete"
	PlaylistAddTracks    Channel = "playlist:addTracks"
	PlaylistRemoveTracks Channel = "playlist:removeTracks"
	PlaylistUpdated      Channel = "playlist:updated"
)

// Radio
const (
	RadioGetStations Channel = "radio:getStations"
	RadioGetShow     Channel = "radio:getShow"
	RadioPlay        Channel = "radio:play"
	RadioNowPlaying  Channel = "radio:nowPlaying"
)

// Cache
const (
	CacheGetStats Channel = "cache:getStats"
	CacheClear    Channel = "cache:clear"
	CachePrefetch Channel = "cache:prefetch"
	CacheProgress Channel = "cache:progress"
)

// Scrobbler
const (
	ScrobblerConnect       Channel = "scrobbler:connect"
	ScrobblerDisconnect    Channel = "scrobbler:disconnect"
	ScrobblerGetStatus     Channel = "scrobbler:getStatus"
	ScrobblerScrobble      Channel = "scrobbler:scrobble"
	ScrobblerStatusChanged Channel = "scrobbler:statusChanged"
)

// Settings
const (
	SettingsGet     Channel = "settings:get"
	SettingsSet     Channel = "settings:set"
	SettingsGetAll  Channel = "settings:getAll"
	SettingsReset   Channel = "settings:reset"
	SettingsChanged Channel = "settings:changed"
)

// Window
const (
	WindowMinimize      Channel = "window:minimize"
	WindowMaximize      Channel = "window:maximize"
	WindowClose         Channel = "window:close"
	WindowSetFullscreen Channel = "window:setFullscreen"
	WindowStateChanged  Channel = "window:stateChanged"
)

// System
const (
	SystemPing         Channel = "system:ping"
	SystemGetVersion   Channel = "system:getVersion"
	SystemGetChannels  Channel = "system:getChannels"
	SystemOpenExternal Channel = "system:openExternal"
	SystemNotification Channel = "system:notification"
)

// Definition binds a channel name to its group and kind.
type Definition struct {
	Name  Channel
	Group Group
	Kind  Kind
}

func req(name Channel, g Group) Definition { return Definition{Name: name, Group: g, Kind: KindRequest} }
func evt(name Channel, g Group) Definition { return Definition{Name: name, Group: g, Kind: KindEvent} }

// DefaultCatalog returns the music player's channel catalog in definition order.
// A fresh slice is returned on every call.
func DefaultCatalog() []Definition {
	return []Definition{
		req(AuthLogin, GroupAuth),
		req(AuthLogout, GroupAuth),
		req(AuthGetSession, GroupAuth),
		req(AuthRefresh, GroupAuth),
		evt(AuthSessionChanged, GroupAuth),

		req(CollectionGet, GroupCollection),
		req(CollectionSearch, GroupCollection),
		req(CollectionGetAlbum, GroupCollection),
		req(CollectionGetArtist, GroupCollection),
		req(CollectionSync, GroupCollection),
		evt(CollectionSyncProgress, GroupCollection),
		evt(CollectionUpdated, GroupCollection),

		req(PlayerPlay, GroupPlayer),
		req(PlayerPause, GroupPlayer),
		req(PlayerToggle, GroupPlayer),
		req(PlayerStop, GroupPlayer),
		req(PlayerNext, GroupPlayer),
		req(PlayerPrevious, GroupPlayer),
		req(PlayerSeek, GroupPlayer),
		req(PlayerSetVolume, GroupPlayer),
		req(PlayerGetState, GroupPlayer),
		evt(PlayerStateChanged, GroupPlayer),
		evt(PlayerTimeUpdate, GroupPlayer),
		evt(PlayerTrackChanged, GroupPlayer),
		evt(PlayerError, GroupPlayer),

		req(QueueGet, GroupQueue),
		req(QueueAdd, GroupQueue),
		req(QueueAddNext, GroupQueue),
		req(QueueRemove, GroupQueue),
		req(QueueMove, GroupQueue),
		req(QueueClear, GroupQueue),
		req(QueueShuffle, GroupQueue),
		evt(QueueUpdated, GroupQueue),

		req(PlaylistList, GroupPlaylist),
		req(PlaylistGet, GroupPlaylist),
		req(PlaylistCreate, GroupPlaylist),
		req(PlaylistRename, GroupPlaylist),
		req(PlaylistDelete, GroupPlaylist),
		req(PlaylistAddTracks, GroupPlaylist),
		req(PlaylistRemoveTracks, GroupPlaylist),
		evt(PlaylistUpdated, GroupPlaylist),

		req(RadioGetStations, GroupRadio),
		req(RadioGetShow, GroupRadio),
		req(RadioPlay, GroupRadio),
		evt(RadioNowPlaying, GroupRadio),

		req(CacheGetStats, GroupCache),
		req(CacheClear, GroupCache),
		req(CachePrefetch, GroupCache),
		evt(CacheProgress, GroupCache),

		req(ScrobblerConnect, GroupScrobbler),
		req(ScrobblerDisconnect, GroupScrobbler),
		req(ScrobblerGetStatus, GroupScrobbler),
		req(ScrobblerScrobble, GroupScrobbler),
		evt(ScrobblerStatusChanged, GroupScrobbler),

		req(SettingsGet, GroupSettings),
		req(SettingsSet, GroupSettings),
		req(SettingsGetAll, GroupSettings),
		req(SettingsReset, GroupSettings),
		evt(SettingsChanged, GroupSettings),

		req(WindowMinimize, GroupWindow),
		req(WindowMaximize, GroupWindow),
		req(WindowClose, GroupWindow),
		req(WindowSetFullscreen, GroupWindow),
		evt(WindowStateChanged, GroupWindow),

		req(SystemPing, GroupSystem),
		req(SystemGetVersion, GroupSystem),
		req(SystemGetChannels, GroupSystem),
		req(SystemOpenExternal, GroupSystem),
		evt(SystemNotification, GroupSystem),
	}
}
