// Package bincodec 实现紧凑的二进制格式，线上形式与 MessagePack 兼容，
// 编码与解码的逐个标记读写由 vmihailenco/msgpack/v5 的 Encoder / Decoder 完成。
//
// 每个值以一个标签字节开头，标签决定后续字节的形状；小整数、短字符串、短数组与
// 小记录的长度直接编码在标签里。所有多字节整数均为大端序。
// 记录成员写为（无符号 id，值）对，不写名称；枚举写为无符号 id。
package bincodec
