package common

import jsoniter "github.com/json-iterator/go"

// 回调热路径上的 JSON 编解码统一走 json-iterator（与标准库兼容配置）

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func JsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func JsonMarshalToString(v interface{}) (string, error) {
	return json.MarshalToString(v)
}

func JsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
