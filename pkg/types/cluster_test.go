package types

import (
	"reflect"
	"testing"
)

func TestEventClusterMerge(t *testing.T) {
	a := EventCluster{
		Type:        WebHistory,
		Description: "http://example.com",
		Level:       DescriptionFull,
		Span:        Span{Start: 100, End: 110},
		EventIDs:    []int64{1, 3},
		HashHitIDs:  []int64{3},
	}
	b := EventCluster{
		Type:        WebHistory,
		Description: "http://example.com",
		Level:       DescriptionFull,
		Span:        Span{Start: 105, End: 130},
		EventIDs:    []int64{2, 3},
		TaggedIDs:   []int64{2},
	}

	m := a.Merge(b)
	if m.Span != (Span{Start: 100, End: 130}) {
		t.Errorf("merged span = %v, want [100, 130]", m.Span)
	}
	if !reflect.DeepEqual(m.EventIDs, []int64{1, 2, 3}) {
		t.Errorf("merged event ids = %v, want [1 2 3]", m.EventIDs)
	}
	if !reflect.DeepEqual(m.HashHitIDs, []int64{3}) {
		t.Errorf("merged hash hit ids = %v, want [3]", m.HashHitIDs)
	}
	if !reflect.DeepEqual(m.TaggedIDs, []int64{2}) {
		t.Errorf("merged tagged ids = %v, want [2]", m.TaggedIDs)
	}
}

func TestEventClusterMergePanicsAcrossGroups(t *testing.T) {
	a := EventCluster{Type: WebHistory, Description: "x"}
	b := EventCluster{Type: WebCookie, Description: "x"}
	defer func() {
		if recover() == nil {
			t.Fatal("merging clusters of different types did not panic")
		}
	}()
	a.Merge(b)
}

func TestStripeOfKeepsClusterFields(t *testing.T) {
	c := EventCluster{
		Type:        FileModified,
		Description: "/img/sda1/windows",
		Span:        Span{Start: 7, End: 9},
		EventIDs:    []int64{11, 12},
	}
	s := StripeOf(c)
	if s.Type != c.Type || s.Description != c.Description || s.Span != c.Span {
		t.Errorf("stripe lost cluster identity: %+v", s)
	}
	if len(s.Clusters) != 1 || !reflect.DeepEqual(s.Clusters[0], c) {
		t.Errorf("stripe members = %+v, want the single source cluster", s.Clusters)
	}
}

func TestEventStripeMergeOrdersClusters(t *testing.T) {
	late := StripeOf(EventCluster{
		Type: Email, Description: "inbox",
		Span: Span{Start: 500, End: 510}, EventIDs: []int64{5},
	})
	early := StripeOf(EventCluster{
		Type: Email, Description: "inbox",
		Span: Span{Start: 100, End: 110}, EventIDs: []int64{1},
	})

	m := late.Merge(early)
	if m.Span != (Span{Start: 100, End: 510}) {
		t.Errorf("merged span = %v, want [100, 510]", m.Span)
	}
	if len(m.Clusters) != 2 || m.Clusters[0].Span.Start != 100 {
		t.Errorf("clusters not ordered by span start: %+v", m.Clusters)
	}
	if !reflect.DeepEqual(m.EventIDs, []int64{1, 5}) {
		t.Errorf("merged event ids = %v, want [1 5]", m.EventIDs)
	}
}

func TestUnionSortedDeduplicates(t *testing.T) {
	got := unionSorted([]int64{3, 1, 3}, []int64{2, 3})
	if !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("unionSorted = %v, want [1 2 3]", got)
	}
	if unionSorted(nil, nil) != nil {
		t.Error("union of empty inputs should be nil")
	}
}
