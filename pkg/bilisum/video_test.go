package bilisum

import (
	"strings"
	"testing"
)

func TestVideoInfoValidate(t *testing.T) {
	tests := []struct {
		name    string
		video   VideoInfo
		wantErr bool
	}{
		{
			name:  "valid",
			video: VideoInfo{BVID: "BV1ab4y1c7de", Title: "测试视频"},
		},
		{
			name:    "missing bvid",
			video:   VideoInfo{Title: "测试视频"},
			wantErr: true,
		},
		{
			name:    "missing title",
			video:   VideoInfo{BVID: "BV1ab4y1c7de"},
			wantErr: true,
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			err := testCase.video.Validate()
			if testCase.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !testCase.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestVideoContextPrompt(t *testing.T) {
	t.Parallel()

	prompt := VideoContext{
		BVID:         "BV1ab4y1c7de",
		Title:        "测试视频",
		Description:  "一个测试视频",
		OwnerName:    "测试UP主",
		DurationText: "2分5秒",
		Subtitle:     "第一句 第二句",
	}.Prompt()

	for _, want := range []string{
		"视频标题：测试视频",
		"UP主：测试UP主",
		"时长：2分5秒",
		"视频简介：一个测试视频",
		"视频字幕内容：\n第一句 第二句",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "用户的问题") {
		t.Fatalf("prompt must not carry a question block for summary intent:\n%s", prompt)
	}
}

func TestVideoContextPromptWithoutSubtitle(t *testing.T) {
	t.Parallel()

	prompt := VideoContext{
		Title:        "测试视频",
		OwnerName:    "测试UP主",
		DurationText: "2分5秒",
	}.Prompt()

	if !strings.Contains(prompt, "该视频没有字幕") {
		t.Fatalf("prompt missing no-subtitle clause:\n%s", prompt)
	}
	if strings.Contains(prompt, "视频字幕内容") {
		t.Fatalf("prompt must not carry an empty subtitle block:\n%s", prompt)
	}
	if strings.Contains(prompt, "视频简介") {
		t.Fatalf("prompt must not carry an empty description block:\n%s", prompt)
	}
}

func TestVideoContextPromptWithQuestion(t *testing.T) {
	t.Parallel()

	prompt := VideoContext{
		Title:        "测试视频",
		OwnerName:    "测试UP主",
		DurationText: "2分5秒",
		UserQuestion: "第三个要点是什么",
	}.Prompt()

	if !strings.Contains(prompt, "用户的问题/要求：第三个要点是什么") {
		t.Fatalf("prompt missing question block:\n%s", prompt)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds int64
		want    string
	}{
		{name: "minutes and seconds", seconds: 125, want: "2分5秒"},
		{name: "under a minute", seconds: 45, want: "0分45秒"},
		{name: "exact minutes", seconds: 180, want: "3分0秒"},
		{name: "zero", seconds: 0, want: "0分0秒"},
		{name: "negative clamps to zero", seconds: -5, want: "0分0秒"},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			if got := FormatDuration(testCase.seconds); got != testCase.want {
				t.Fatalf("FormatDuration(%d) = %q, want %q", testCase.seconds, got, testCase.want)
			}
		})
	}
}
