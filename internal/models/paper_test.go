package models

import "testing"

func TestPaper_Text(t *testing.T) {
	p := Paper{Title: "Neural nets", Abstract: "deep learning"}
	if got := p.Text(); got != "Neural nets. deep learning" {
		t.Errorf("Text() = %q", got)
	}
	if got := (Paper{}).Text(); got != ". " {
		t.Errorf("empty paper Text() = %q", got)
	}
}

func TestPaper_Lists(t *testing.T) {
	p := Paper{Authors: "Ada Lovelace, Alan Turing", Keywords: "rl,  robotics ,"}
	if got := p.AuthorList(); len(got) != 2 || got[1] != "Alan Turing" {
		t.Errorf("AuthorList() = %v", got)
	}
	if got := p.KeywordList(); len(got) != 2 || got[1] != "robotics" {
		t.Errorf("KeywordList() = %v", got)
	}
}

func TestCorpus_Texts(t *testing.T) {
	var nilCorpus *Corpus
	if nilCorpus.Len() != 0 {
		t.Error("nil corpus should have length 0")
	}
	c := &Corpus{Papers: []Paper{{Title: "a"}, {Title: "b", Abstract: "c"}}}
	texts := c.Texts()
	if len(texts) != 2 || texts[0] != "a. " || texts[1] != "b. c" {
		t.Errorf("Texts() = %q", texts)
	}
}

func TestJoinList(t *testing.T) {
	if got := JoinList([]string{" a ", "", "b"}); got != "a, b" {
		t.Errorf("JoinList = %q", got)
	}
}
