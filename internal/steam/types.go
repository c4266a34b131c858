package steam

import (
	"fmt"
	"math"
	"time"
)

// Game is one owned game, reshaped for the portal.
type Game struct {
	AppID           int        `json:"appId"`
	Name            string     `json:"name"`
	PlaytimeForever int        `json:"playtimeForever"`
	Playtime2Weeks  int        `json:"playtime2Weeks"`
	PlaytimeHours   float64    `json:"playtimeHours"`
	IconURL         string     `json:"iconUrl,omitempty"`
	LogoURL         string     `json:"logoUrl"`
	HeaderURL       string     `json:"headerUrl"`
	LastPlayed      *time.Time `json:"lastPlayed"`
}

// Profile is the public face of a Steam account.
type Profile struct {
	SteamID    string     `json:"steamId"`
	Name       string     `json:"name"`
	Avatar     string     `json:"avatar"`
	ProfileURL string     `json:"profileUrl"`
	Online     bool       `json:"online"`
	Public     bool       `json:"public"`
	CreatedAt  *time.Time `json:"createdAt"`
}

// AchievementSummary aggregates achievement progress for one subject+game.
type AchievementSummary struct {
	AppID           int    `json:"appId"`
	GameName        string `json:"gameName,omitempty"`
	HasAchievements bool   `json:"hasAchievements"`
	Total           int    `json:"total"`
	Unlocked        int    `json:"unlocked"`
	Percentage      int    `json:"percentage"`
	Private         bool   `json:"private,omitempty"`
}

// Friend is one friend-list entry enriched with persona data.
type Friend struct {
	SteamID     string     `json:"steamId"`
	Name        string     `json:"name"`
	Avatar      string     `json:"avatar"`
	Online      bool       `json:"online"`
	FriendSince *time.Time `json:"friendSince"`
}

// Raw wire shapes.

type ownedGamesResponse struct {
	Response struct {
		GameCount int       `json:"game_count"`
		Games     []rawGame `json:"games"`
	} `json:"response"`
}

type rawGame struct {
	AppID           int    `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"`
	Playtime2Weeks  int    `json:"playtime_2weeks"`
	ImgIconURL      string `json:"img_icon_url"`
	RtimeLastPlayed int64  `json:"rtime_last_played"`
}

type playerSummariesResponse struct {
	Response struct {
		Players []rawPlayer `json:"players"`
	} `json:"response"`
}

type rawPlayer struct {
	SteamID                  string `json:"steamid"`
	PersonaName              string `json:"personaname"`
	AvatarFull               string `json:"avatarfull"`
	ProfileURL               string `json:"profileurl"`
	PersonaState             int    `json:"personastate"`
	CommunityVisibilityState int    `json:"communityvisibilitystate"`
	TimeCreated              int64  `json:"timecreated"`
}

type playerAchievementsResponse struct {
	PlayerStats struct {
		GameName     string           `json:"gameName"`
		Achievements []rawAchievement `json:"achievements"`
	} `json:"playerstats"`
}

type rawAchievement struct {
	APIName    string `json:"apiname"`
	Achieved   int    `json:"achieved"`
	UnlockTime int64  `json:"unlocktime"`
}

type friendListResponse struct {
	FriendsList struct {
		Friends []rawFriend `json:"friends"`
	} `json:"friendslist"`
}

type rawFriend struct {
	SteamID     string `json:"steamid"`
	FriendSince int64  `json:"friend_since"`
}

// Derivations.

const (
	iconURLFmt   = "https://media.steampowered.com/steamcommunity/public/images/apps/%d/%s.jpg"
	logoURLFmt   = "https://cdn.cloudflare.steamstatic.com/steam/apps/%d/capsule_184x69.jpg"
	headerURLFmt = "https://cdn.cloudflare.steamstatic.com/steam/apps/%d/header.jpg"
)

func deriveGame(g rawGame) Game {
	out := Game{
		AppID:           g.AppID,
		Name:            g.Name,
		PlaytimeForever: g.PlaytimeForever,
		Playtime2Weeks:  g.Playtime2Weeks,
		PlaytimeHours:   playtimeHours(g.PlaytimeForever),
		LogoURL:         fmt.Sprintf(logoURLFmt, g.AppID),
		HeaderURL:       fmt.Sprintf(headerURLFmt, g.AppID),
		LastPlayed:      unixTime(g.RtimeLastPlayed),
	}
	if g.ImgIconURL != "" {
		out.IconURL = fmt.Sprintf(iconURLFmt, g.AppID, g.ImgIconURL)
	}
	return out
}

func deriveProfile(p rawPlayer) Profile {
	return Profile{
		SteamID:    p.SteamID,
		Name:       p.PersonaName,
		Avatar:     p.AvatarFull,
		ProfileURL: p.ProfileURL,
		Online:     p.PersonaState > 0,
		Public:     p.CommunityVisibilityState == 3,
		CreatedAt:  unixTime(p.TimeCreated),
	}
}

func deriveFriend(p rawPlayer, friendSince int64) Friend {
	return Friend{
		SteamID:     p.SteamID,
		Name:        p.PersonaName,
		Avatar:      p.AvatarFull,
		Online:      p.PersonaState > 0,
		FriendSince: unixTime(friendSince),
	}
}

// playtimeHours converts minutes to hours rounded to one decimal place.
func playtimeHours(minutes int) float64 {
	return math.Round(float64(minutes)/60*10) / 10
}

// percentage returns round(unlocked/total*100), 0 when total is 0.
func percentage(unlocked, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(unlocked) / float64(total) * 100))
}

func unixTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
